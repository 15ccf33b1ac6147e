package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"brewbot/backend/internal/agent"
	"brewbot/backend/internal/session"
	apperrors "brewbot/backend/pkg/errors"
)

// discordMaxMessageLength is the hard cap on a single message
const discordMaxMessageLength = 2000

// HandleMessage processes gateway messages: a bare mention in a guild
// summons the bot into the author's voice channel, a DM runs a
// text-only turn
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself
	if m.Author.ID == s.State.User.ID {
		return
	}

	if m.GuildID == "" {
		h.handleDirectMessage(s, m)
		return
	}

	// Only a bare mention triggers the summon; mentions with extra text
	// are left alone
	content := strings.TrimSpace(m.Content)
	if content == "<@"+s.State.User.ID+">" || content == "<@!"+s.State.User.ID+">" {
		h.handleBareMention(s, m)
	}
}

// handleBareMention joins the author's voice channel and plays the
// greeting clip. Authors outside a voice channel are ignored.
func (h *Handler) handleBareMention(s *discordgo.Session, m *discordgo.MessageCreate) {
	vs, err := s.State.VoiceState(m.GuildID, m.Author.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		h.logger.Debug("Mention from user outside a voice channel",
			zap.String("user_id", m.Author.ID),
		)
		return
	}

	h.logger.Info("Summoned by mention",
		zap.String("guild_id", m.GuildID),
		zap.String("channel_id", vs.ChannelID),
	)

	_, err = h.session.JoinVoice(m.GuildID, func() (session.VoiceHandle, error) {
		vc, err := s.ChannelVoiceJoin(m.GuildID, vs.ChannelID, false, true)
		if err != nil {
			return nil, apperrors.PlaybackFailed("failed to join voice channel", err)
		}
		h.metrics.VoiceConnected(1)
		return &guildVoice{vc: vc, metrics: h.metrics}, nil
	})
	if err != nil {
		h.logger.Error("Voice join from mention failed", zap.Error(err))
		_, _ = s.ChannelMessageSend(m.ChannelID, "⛑️ Error joining the voice channel!")
		return
	}

	embeds, components := ControlPanel(h.cats, h.session.Persona(), h.session.Voice(), h.session.Language())
	msg, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:    panelHeader,
		Embeds:     embeds,
		Components: components,
	})
	if err != nil {
		h.logger.Error("Failed to post control panel", zap.Error(err))
	} else {
		h.session.SetPanel(session.PanelRef{ChannelID: msg.ChannelID, MessageID: msg.ID})
	}

	h.session.ResetIdleTimer(m.GuildID)

	go func() {
		if err := h.player.PlayClip(context.Background(), m.GuildID, h.cfg.GreetingClip); err != nil {
			h.logger.Warn("Greeting playback failed", zap.Error(err))
		}
	}()
}

// handleDirectMessage runs a text-only turn: the reply is posted as
// text, no synthesis or playback
func (h *Handler) handleDirectMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	h.logger.Info("Processing direct message",
		zap.String("user_id", m.Author.ID),
		zap.String("channel_id", m.ChannelID),
	)

	loading, err := s.ChannelMessageSend(m.ChannelID, RandomLoadingMessage())
	if err != nil {
		h.logger.Warn("Failed to send loading message", zap.Error(err))
	}

	onStage := func(stage agent.Stage) {
		if loading == nil || stage == agent.StageDone {
			return
		}
		if _, err := s.ChannelMessageEdit(m.ChannelID, loading.ID, RandomLoadingMessage()); err != nil {
			uiErr := apperrors.UIUpdateFailed("failed to edit loading message", err)
			h.logger.Debug("Loading message edit failed", zap.Error(uiErr))
		}
	}

	result, err := h.orch.RunTurn(context.Background(), agent.TurnRequest{
		UserID:   m.Author.ID,
		Username: m.Author.Username,
		Text:     content,
		Speak:    false,
		OnStage:  onStage,
	})
	if err != nil {
		notice := userMessage(err)
		if loading != nil {
			_, _ = s.ChannelMessageEdit(m.ChannelID, loading.ID, notice)
		} else {
			_, _ = s.ChannelMessageSend(m.ChannelID, notice)
		}
		return
	}

	// Replace the loading message with the first chunk of the reply
	chunks := splitMessage(result.AssistantText, discordMaxMessageLength)
	if loading != nil {
		if _, err := s.ChannelMessageEdit(m.ChannelID, loading.ID, chunks[0]); err == nil {
			chunks = chunks[1:]
		}
	}
	for _, chunk := range chunks {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			h.logger.Error("Failed to send reply chunk", zap.Error(err))
			break
		}
	}
}

// splitMessage splits content into chunks of at most maxLength,
// preferring newline then space boundaries
func splitMessage(content string, maxLength int) []string {
	if len(content) <= maxLength {
		return []string{content}
	}

	var chunks []string
	for len(content) > maxLength {
		splitIdx := strings.LastIndex(content[:maxLength], "\n")
		if splitIdx < maxLength/2 {
			if spaceIdx := strings.LastIndex(content[:maxLength], " "); spaceIdx > maxLength/2 {
				splitIdx = spaceIdx
			} else {
				splitIdx = maxLength
			}
		}
		chunks = append(chunks, strings.TrimSpace(content[:splitIdx]))
		content = strings.TrimSpace(content[splitIdx:])
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}
