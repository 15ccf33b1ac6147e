package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewbot/backend/internal/catalog"
	"brewbot/backend/pkg/config"
)

func testCatalogs() *catalog.Catalogs {
	return catalog.New(&config.Config{
		AssistantIDBrew:   "asst_brew",
		AssistantIDSage:   "asst_sage",
		AssistantIDJester: "asst_jester",
		DefaultPersona:    "brew",
		DefaultVoice:      "onyx",
		DefaultLanguage:   "en",
	})
}

func TestControlPanel_ComponentLayout(t *testing.T) {
	embeds, components := ControlPanel(testCatalogs(), "brew", "onyx", "en")

	require.Len(t, embeds, 1)
	assert.Equal(t, "Control Panel", embeds[0].Title)

	// buttons, voice select, language select, persona select, close
	require.Len(t, components, 5)

	buttonRow, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, buttonRow.Components, 2)
	ask := buttonRow.Components[0].(discordgo.Button)
	assert.Equal(t, ButtonAsk, ask.CustomID)
	assert.Equal(t, "Ask Brew", ask.Label)
	replay := buttonRow.Components[1].(discordgo.Button)
	assert.Equal(t, ButtonReplay, replay.CustomID)

	voiceRow := components[1].(discordgo.ActionsRow)
	voiceSelect := voiceRow.Components[0].(discordgo.SelectMenu)
	assert.Equal(t, SelectVoice, voiceSelect.CustomID)
	assert.Len(t, voiceSelect.Options, 6)

	langRow := components[2].(discordgo.ActionsRow)
	langSelect := langRow.Components[0].(discordgo.SelectMenu)
	assert.Equal(t, SelectLanguage, langSelect.CustomID)
	assert.Len(t, langSelect.Options, 4)

	personaRow := components[3].(discordgo.ActionsRow)
	personaSelect := personaRow.Components[0].(discordgo.SelectMenu)
	assert.Equal(t, SelectPersona, personaSelect.CustomID)
	assert.Len(t, personaSelect.Options, 3)

	closeRow := components[4].(discordgo.ActionsRow)
	closeButton := closeRow.Components[0].(discordgo.Button)
	assert.Equal(t, ButtonClose, closeButton.CustomID)
	assert.Equal(t, discordgo.DangerButton, closeButton.Style)
}

func TestControlPanel_MarksCurrentSelections(t *testing.T) {
	_, components := ControlPanel(testCatalogs(), "sage", "nova", "it")

	voiceSelect := components[1].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	for _, opt := range voiceSelect.Options {
		assert.Equal(t, opt.Value == "nova", opt.Default, "voice %s", opt.Value)
	}

	personaSelect := components[3].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	for _, opt := range personaSelect.Options {
		assert.Equal(t, opt.Value == "sage", opt.Default, "persona %s", opt.Value)
	}

	askButton := components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "Ask Sage", askButton.Label)
}

func TestAskModal(t *testing.T) {
	modal := AskModal(testCatalogs(), "jester")

	assert.Equal(t, ModalAsk, modal.CustomID)
	assert.Equal(t, "Ask Jester", modal.Title)

	row := modal.Components[0].(discordgo.ActionsRow)
	input := row.Components[0].(discordgo.TextInput)
	assert.Equal(t, ModalQuestion, input.CustomID)
	assert.True(t, input.Required)
}

func TestCommands_Shape(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 3)

	assert.Equal(t, CommandBrew, cmds[0].Name)
	subs := make([]string, 0, len(cmds[0].Options))
	for _, o := range cmds[0].Options {
		subs = append(subs, o.Name)
	}
	assert.ElementsMatch(t, []string{"channel", "say", "clean", "ping"}, subs)

	assert.Equal(t, ContextSummon, cmds[1].Name)
	assert.Equal(t, discordgo.UserApplicationCommand, cmds[1].Type)
	assert.Equal(t, ContextAsk, cmds[2].Name)
	assert.Equal(t, discordgo.UserApplicationCommand, cmds[2].Type)
}
