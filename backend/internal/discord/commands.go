package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Command and context-menu names
const (
	CommandBrew   = "brew"
	ContextSummon = "Summon Brewbot"
	ContextAsk    = "Ask Brewbot"
)

// Commands returns the application command set: the /brew slash command
// with its subcommands plus the two user context menus
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandBrew,
			Description: "Various brewbot commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Manage voice channels",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "action",
							Description: "Action to perform on the voice channel",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "join", Value: "join"},
								{Name: "leave", Value: "leave"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "say",
					Description: "Say something and spill the tea 🍵",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "text",
							Description: "Text to say, as refreshing as a cup of tea",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clean",
					Description: "Clean the channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "number",
							Description: "Number of messages to delete",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ping",
					Description: "Check the bot's latency",
				},
			},
		},
		{
			Name: ContextSummon,
			Type: discordgo.UserApplicationCommand,
		},
		{
			Name: ContextAsk,
			Type: discordgo.UserApplicationCommand,
		},
	}
}

// RegisterCommands overwrites the application command set. An empty
// guildID registers globally.
func RegisterCommands(s *discordgo.Session, appID, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	return err
}
