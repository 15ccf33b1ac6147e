package discord

import (
	"fmt"
	"math/rand"

	"github.com/bwmarrin/discordgo"

	"brewbot/backend/internal/catalog"
)

// Component and modal identifiers used by the control panel
const (
	ButtonAsk    = "ask_brewbot"
	ButtonReplay = "replay_last_reply"
	ButtonClose  = "close_panel"

	SelectVoice    = "select_voice"
	SelectLanguage = "select_language"
	SelectPersona  = "select_persona"

	ModalAsk      = "ask_brewbot_modal"
	ModalQuestion = "brewbot_question"
)

const panelHeader = "**Steeped into the voice channel! 🍵 Choose your brew of action:**"

var loadingMessages = []string{
	"🍵 Brewing your perfect cup of tea...",
	"🍵 Stirring in some wisdom...",
	"🍵 Adding a dash of humor...",
	"🍵 Waiting for the tea to steep...",
	"🍵 Almost there, just a moment more...",
}

// RandomLoadingMessage picks one of the rotating progress lines
func RandomLoadingMessage() string {
	return loadingMessages[rand.Intn(len(loadingMessages))]
}

// ControlPanel builds the embed and component rows for the live control
// panel, with the current selections shown in each placeholder
func ControlPanel(cats *catalog.Catalogs, personaKey, voiceID, langCode string) ([]*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	persona, _ := cats.PersonaByKey(personaKey)
	voice, _ := cats.VoiceByID(voiceID)
	lang, _ := cats.LanguageByCode(langCode)

	embed := &discordgo.MessageEmbed{
		Title:       "Control Panel",
		Description: "Ask me something, don't be scared",
		Color:       0x00AE86,
	}

	buttonRow := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: ButtonAsk,
				Label:    fmt.Sprintf("Ask %s", persona.FriendlyName),
				Style:    discordgo.SuccessButton,
			},
			discordgo.Button{
				CustomID: ButtonReplay,
				Label:    "Replay Last Reply",
				Style:    discordgo.PrimaryButton,
			},
		},
	}

	voiceOptions := make([]discordgo.SelectMenuOption, 0, len(cats.Voices))
	for _, v := range cats.Voices {
		voiceOptions = append(voiceOptions, discordgo.SelectMenuOption{
			Label:   v.Label,
			Value:   v.ID,
			Default: v.ID == voiceID,
		})
	}
	voiceRow := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    SelectVoice,
				Placeholder: fmt.Sprintf("Voice - %s", voice.Label),
				Options:     voiceOptions,
			},
		},
	}

	langOptions := make([]discordgo.SelectMenuOption, 0, len(cats.Languages))
	for _, l := range cats.Languages {
		langOptions = append(langOptions, discordgo.SelectMenuOption{
			Label:   l.Label,
			Value:   l.Code,
			Default: l.Code == langCode,
		})
	}
	langRow := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    SelectLanguage,
				Placeholder: fmt.Sprintf("Language - %s", lang.Label),
				Options:     langOptions,
			},
		},
	}

	personaOptions := make([]discordgo.SelectMenuOption, 0, len(cats.Personas))
	for _, p := range cats.Personas {
		personaOptions = append(personaOptions, discordgo.SelectMenuOption{
			Label:   p.FriendlyName,
			Value:   p.Key,
			Default: p.Key == personaKey,
		})
	}
	personaRow := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    SelectPersona,
				Placeholder: fmt.Sprintf("Persona - %s", persona.FriendlyName),
				Options:     personaOptions,
			},
		},
	}

	closeRow := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: ButtonClose,
				Label:    "Close",
				Style:    discordgo.DangerButton,
			},
		},
	}

	return []*discordgo.MessageEmbed{embed},
		[]discordgo.MessageComponent{buttonRow, voiceRow, langRow, personaRow, closeRow}
}

// AskModal builds the question modal, titled after the selected persona
func AskModal(cats *catalog.Catalogs, personaKey string) *discordgo.InteractionResponseData {
	persona, _ := cats.PersonaByKey(personaKey)
	return &discordgo.InteractionResponseData{
		CustomID: ModalAsk,
		Title:    fmt.Sprintf("Ask %s", persona.FriendlyName),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    ModalQuestion,
						Label:       fmt.Sprintf("What do you want to ask %s?", persona.FriendlyName),
						Style:       discordgo.TextInputParagraph,
						Required:    true,
						MaxLength:   2000,
						Placeholder: "Spill it...",
					},
				},
			},
		},
	}
}
