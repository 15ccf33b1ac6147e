package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"brewbot/backend/internal/agent"
	"brewbot/backend/internal/catalog"
	"brewbot/backend/internal/observability"
	"brewbot/backend/internal/session"
	"brewbot/backend/pkg/config"
	apperrors "brewbot/backend/pkg/errors"
	"brewbot/backend/pkg/logger"
)

const (
	noticeDelay   = 5 * time.Second
	errorDelay    = 10 * time.Second
	maxMessageAge = 14 * 24 * time.Hour // Discord refuses bulk deletes past this
)

// Handler routes Discord interactions and messages into the turn
// pipeline and the shared session
type Handler struct {
	cfg     *config.Config
	cats    *catalog.Catalogs
	session *session.Manager
	orch    *agent.Orchestrator
	player  *Player
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHandler creates the Discord interaction handler
func NewHandler(cfg *config.Config, cats *catalog.Catalogs, mgr *session.Manager, orch *agent.Orchestrator, player *Player) *Handler {
	return &Handler{
		cfg:     cfg,
		cats:    cats,
		session: mgr,
		orch:    orch,
		player:  player,
		logger:  logger.Get(),
	}
}

// SetMetrics attaches the voice-connection gauge; nil is allowed
func (h *Handler) SetMetrics(m *observability.Metrics) {
	h.metrics = m
}

// PanelCleanup returns the session cleanup hook that deletes the stale
// control-panel message on disconnect. Deletion failures are logged and
// swallowed; a stale reference must never block teardown.
func (h *Handler) PanelCleanup(s *discordgo.Session) func(session.PanelRef) {
	return func(ref session.PanelRef) {
		if err := s.ChannelMessageDelete(ref.ChannelID, ref.MessageID); err != nil {
			uiErr := apperrors.UIUpdateFailed("failed to delete control panel message", err)
			h.logger.Warn("Control panel cleanup failed",
				zap.String("message_id", ref.MessageID),
				zap.Error(uiErr),
			)
		}
	}
}

// HandleInteraction is the gateway InteractionCreate handler
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(s, i)
	case discordgo.InteractionModalSubmit:
		h.handleModalSubmit(s, i)
	default:
		h.logger.Debug("Ignoring interaction", zap.Int("type", int(i.Type)))
	}
}

func (h *Handler) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	h.logger.Info("Command interaction received",
		zap.String("command", data.Name),
		zap.String("user_id", interactionUser(i).ID),
	)

	switch data.Name {
	case ContextSummon:
		h.handleJoin(s, i, true)
		return
	case ContextAsk:
		h.showAskModal(s, i)
		return
	case CommandBrew:
	default:
		h.timedNotice(s, i, "Unknown command.", errorDelay)
		return
	}

	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	switch sub.Name {
	case "channel":
		action := sub.Options[0].StringValue()
		if action == "join" {
			h.handleJoin(s, i, true)
		} else {
			h.handleLeave(s, i)
		}
	case "say":
		h.handleSay(s, i, sub.Options[0].StringValue())
	case "clean":
		h.handleClean(s, i, int(sub.Options[0].IntValue()))
	case "ping":
		h.handlePing(s, i)
	}
}

// handleJoin joins the invoker's voice channel, posts the control panel
// and optionally plays the greeting clip
func (h *Handler) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate, greet bool) {
	user := interactionUser(i)

	vs, err := s.State.VoiceState(i.GuildID, user.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		h.timedNotice(s, i, "⛑️ You need to be in a voice channel first!", errorDelay)
		return
	}

	if err := h.deferReply(s, i, false); err != nil {
		return
	}

	_, err = h.session.JoinVoice(i.GuildID, func() (session.VoiceHandle, error) {
		vc, err := s.ChannelVoiceJoin(i.GuildID, vs.ChannelID, false, true)
		if err != nil {
			return nil, apperrors.PlaybackFailed("failed to join voice channel", err)
		}
		h.metrics.VoiceConnected(1)
		return &guildVoice{vc: vc, metrics: h.metrics}, nil
	})
	if err != nil {
		h.logger.Error("Voice join failed", zap.String("guild_id", i.GuildID), zap.Error(err))
		h.editReply(s, i, "⛑️ Error joining the voice channel!")
		h.deleteReplyAfter(s, i, errorDelay)
		return
	}

	embeds, components := ControlPanel(h.cats, h.session.Persona(), h.session.Voice(), h.session.Language())
	header := panelHeader
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &header,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		h.logger.Error("Failed to post control panel", zap.Error(err))
	} else if msg, err := s.InteractionResponse(i.Interaction); err == nil {
		h.session.SetPanel(session.PanelRef{ChannelID: msg.ChannelID, MessageID: msg.ID})
	} else {
		h.logger.Warn("Failed to resolve control panel message", zap.Error(err))
	}

	h.session.ResetIdleTimer(i.GuildID)

	if greet {
		go func() {
			if err := h.player.PlayClip(context.Background(), i.GuildID, h.cfg.GreetingClip); err != nil {
				h.logger.Warn("Greeting playback failed", zap.Error(err))
			}
		}()
	}
}

func (h *Handler) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, connected := h.session.Connection(i.GuildID)
	h.session.Disconnect(i.GuildID)

	if connected {
		h.timedNotice(s, i, "Peace ✌️.", noticeDelay)
	} else {
		h.timedNotice(s, i, "I am not in a voice channel!", noticeDelay)
	}
}

// handleSay runs a full spoken turn, narrating progress through the
// deferred reply and leaving exactly one timed notice on failure
func (h *Handler) handleSay(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	user := interactionUser(i)

	if err := h.deferReply(s, i, false); err != nil {
		return
	}

	onStage := func(stage agent.Stage) {
		var content string
		switch stage {
		case agent.StageDelivering:
			content = "🗣️ Talking to you!"
		case agent.StageDone:
			return
		default:
			content = RandomLoadingMessage()
		}
		h.editReply(s, i, content)
	}

	_, err := h.orch.RunTurn(context.Background(), agent.TurnRequest{
		UserID:   user.ID,
		Username: user.Username,
		Text:     text,
		GuildID:  i.GuildID,
		Speak:    true,
		OnStage:  onStage,
	})
	if err != nil {
		h.editReply(s, i, userMessage(err))
		h.deleteReplyAfter(s, i, errorDelay)
		return
	}

	h.editReply(s, i, "✌️ Done.")
	h.deleteReplyAfter(s, i, noticeDelay)
	h.updatePanelStatus(s, "🍵 Your message has been served! Enjoy! 🍵")
}

// handleClean deletes up to n recent deletable messages from the channel
func (h *Handler) handleClean(s *discordgo.Session, i *discordgo.InteractionCreate, n int) {
	if n <= 0 {
		h.timedNotice(s, i, "Please provide a number greater than 0.", noticeDelay)
		return
	}

	if err := h.deferReply(s, i, true); err != nil {
		return
	}

	var toDelete []string
	before := ""
	cutoff := time.Now().Add(-maxMessageAge)
	for len(toDelete) < n {
		limit := n - len(toDelete)
		if limit > 100 {
			limit = 100
		}
		msgs, err := s.ChannelMessages(i.ChannelID, limit, before, "", "")
		if err != nil {
			h.logger.Error("Failed to fetch messages for clean", zap.Error(err))
			break
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			if m.Timestamp.After(cutoff) {
				toDelete = append(toDelete, m.ID)
			}
		}
		before = msgs[len(msgs)-1].ID
	}

	deleted := 0
	switch {
	case len(toDelete) == 1:
		if err := s.ChannelMessageDelete(i.ChannelID, toDelete[0]); err == nil {
			deleted = 1
		}
	case len(toDelete) > 1:
		if err := s.ChannelMessagesBulkDelete(i.ChannelID, toDelete); err != nil {
			h.logger.Error("Bulk delete failed", zap.Error(err))
		} else {
			deleted = len(toDelete)
		}
	}

	h.editReply(s, i, fmt.Sprintf("Successfully deleted %d messages.", deleted))
	h.deleteReplyAfter(s, i, noticeDelay)
	h.logger.Info("Channel cleaned",
		zap.String("channel_id", i.ChannelID),
		zap.Int("deleted", deleted),
	)
}

func (h *Handler) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency()
	h.timedNotice(s, i, fmt.Sprintf("Roundtrip latency: %dms", latency.Milliseconds()), noticeDelay)
	h.logger.Info("Ping", zap.Duration("latency", latency))
}

func (h *Handler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	h.logger.Info("Component interaction received",
		zap.String("custom_id", data.CustomID),
		zap.String("user_id", interactionUser(i).ID),
	)

	switch data.CustomID {
	case ButtonAsk:
		h.showAskModal(s, i)

	case ButtonReplay:
		h.ackComponent(s, i)
		if err := h.player.Replay(context.Background(), i.GuildID); err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				h.followUpNotice(s, i, "Nothing to replay yet — ask me something first!", noticeDelay)
			} else {
				h.logger.Error("Replay failed", zap.Error(err))
				h.followUpNotice(s, i, userMessage(err), errorDelay)
			}
		}

	case ButtonClose:
		closed := "The control panel has been closed."
		empty := []discordgo.MessageComponent{}
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    closed,
				Embeds:     []*discordgo.MessageEmbed{},
				Components: empty,
			},
		}); err != nil {
			h.logger.Warn("Failed to acknowledge close", zap.Error(err))
		}
		h.session.Disconnect(i.GuildID)

	case SelectVoice:
		h.ackComponent(s, i)
		h.session.SetVoice(data.Values[0])
		h.refreshPanel(s)

	case SelectLanguage:
		h.ackComponent(s, i)
		h.session.SetLanguage(data.Values[0])
		h.refreshPanel(s)

	case SelectPersona:
		h.ackComponent(s, i)
		h.session.SetPersona(data.Values[0])
		h.refreshPanel(s)
	}
}

func (h *Handler) handleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if data.CustomID != ModalAsk {
		return
	}

	text := ""
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == ModalQuestion {
				text = input.Value
			}
		}
	}
	if text == "" {
		h.timedNotice(s, i, "⛑️ I didn't catch a question in there.", errorDelay)
		return
	}

	h.handleSay(s, i, text)
}

func (h *Handler) showAskModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: AskModal(h.cats, h.session.Persona()),
	})
	if err != nil {
		h.logger.Error("Failed to show ask modal", zap.Error(err))
	}
}

// refreshPanel rebuilds the control panel message after a selection
// change so placeholders and defaults reflect the new state
func (h *Handler) refreshPanel(s *discordgo.Session) {
	ref, ok := h.session.Panel()
	if !ok {
		h.logger.Warn("Selection changed with no control panel to refresh")
		return
	}

	embeds, components := ControlPanel(h.cats, h.session.Persona(), h.session.Voice(), h.session.Language())
	header := panelHeader
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Content:    &header,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		uiErr := apperrors.UIUpdateFailed("failed to refresh control panel", err)
		h.logger.Warn("Control panel refresh failed", zap.Error(uiErr))
	}
}

// updatePanelStatus appends a status line to the control panel header.
// Best-effort: a stale or deleted panel message only logs.
func (h *Handler) updatePanelStatus(s *discordgo.Session, status string) {
	ref, ok := h.session.Panel()
	if !ok {
		return
	}
	content := panelHeader + "\n\n" + status
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: ref.ChannelID,
		ID:      ref.MessageID,
		Content: &content,
	})
	if err != nil {
		uiErr := apperrors.UIUpdateFailed("failed to update control panel status", err)
		h.logger.Warn("Control panel status update failed", zap.Error(uiErr))
	}
}

// deferReply acknowledges the interaction so the pipeline can take its
// time; later progress goes through editReply
func (h *Handler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.logger.Error("Failed to defer interaction reply", zap.Error(err))
	}
	return err
}

func (h *Handler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	if err != nil {
		uiErr := apperrors.UIUpdateFailed("failed to edit interaction reply", err)
		h.logger.Warn("Reply edit failed", zap.Error(uiErr))
	}
}

// timedNotice sends an immediate ephemeral reply and removes it after
// the delay
func (h *Handler) timedNotice(s *discordgo.Session, i *discordgo.InteractionCreate, content string, delay time.Duration) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Warn("Failed to send notice", zap.Error(err))
		return
	}
	h.deleteReplyAfter(s, i, delay)
}

// followUpNotice posts a timed ephemeral follow-up on an interaction
// that was already acknowledged
func (h *Handler) followUpNotice(s *discordgo.Session, i *discordgo.InteractionCreate, content string, delay time.Duration) {
	msg, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		h.logger.Warn("Failed to send follow-up notice", zap.Error(err))
		return
	}
	time.AfterFunc(delay, func() {
		if err := s.FollowupMessageDelete(i.Interaction, msg.ID); err != nil {
			h.logger.Debug("Follow-up notice already gone", zap.Error(err))
		}
	})
}

func (h *Handler) deleteReplyAfter(s *discordgo.Session, i *discordgo.InteractionCreate, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := s.InteractionResponseDelete(i.Interaction); err != nil {
			h.logger.Debug("Interaction reply already gone", zap.Error(err))
		}
	})
}

// ackComponent acknowledges a component interaction without changing
// the message; panel updates happen through refreshPanel
func (h *Handler) ackComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		h.logger.Warn("Failed to acknowledge component interaction", zap.Error(err))
	}
}

// interactionUser returns the invoking user for both guild and DM
// interactions
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// userMessage maps a pipeline error to the single user-visible notice
func userMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindBackendUnavailable:
		return "⛑️ I couldn't reach my brain right now. Try again in a bit."
	case apperrors.KindNoResponse:
		return "⛑️ I came up empty on that one. Try rephrasing?"
	case apperrors.KindRunTimeout:
		return "⛑️ That one took too long to brew. Try again?"
	case apperrors.KindSynthesisFailed:
		return "⛑️ I lost my voice generating that reply."
	case apperrors.KindPlaybackFailed:
		return "⛑️ I couldn't play that in the voice channel."
	case apperrors.KindNotFound:
		return "⛑️ I couldn't find what you were looking for."
	default:
		return "⛑️ Something went wrong processing your request."
	}
}
