package agent

import (
	"context"
	"io"
	"strings"
	"time"

	"brewbot/backend/internal/observability"
	"brewbot/backend/pkg/errors"
	"brewbot/backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage names the steps of one conversation turn
type Stage string

const (
	StageThreadResolving   Stage = "thread_resolving"
	StageMessageSubmitting Stage = "message_submitting"
	StageAssistantRunning  Stage = "assistant_running"
	StageSynthesizing      Stage = "synthesizing"
	StageDelivering        Stage = "delivering"
	StageDone              Stage = "done"
)

// ConversationClient drives the assistant backend for one turn
type ConversationClient interface {
	GetOrCreateThread(ctx context.Context, userID string) (string, error)
	AppendUserMessage(ctx context.Context, threadID, text string) error
	RunToCompletion(ctx context.Context, threadID, assistantID, addressAs string) (string, error)
}

// SpeechClient synthesizes assistant text into an audio stream
type SpeechClient interface {
	Synthesize(ctx context.Context, text, voiceID string) (io.ReadCloser, error)
}

// Player delivers a synthesized audio stream into a guild's live voice
// connection
type Player interface {
	Deliver(ctx context.Context, guildID string, src io.Reader) error
}

// SessionView is the orchestrator's read-only view of the shared
// session selections
type SessionView interface {
	PersonaAssistantID() (key, assistantID string)
	Voice() string
}

// TurnRequest describes one inbound user utterance
type TurnRequest struct {
	UserID   string
	Username string
	Text     string
	GuildID  string

	// Speak controls whether the reply is synthesized and played; DM
	// turns are text-only
	Speak bool

	// OnStage, when set, receives progress updates for the user-visible
	// loading indicator. Purely best-effort; the callback must not fail
	// the turn.
	OnStage func(Stage)
}

// TurnResult is the outcome of a successful turn
type TurnResult struct {
	TurnID        string
	ThreadID      string
	AssistantText string
}

// Orchestrator runs the turn state machine: resolve thread, append the
// user message, run the assistant, synthesize the reply, deliver it to
// the voice channel. Each step reads the shared session at its own
// moment; a failed turn never writes session state (the thread id
// created in the first step is intentionally retained for retries).
type Orchestrator struct {
	conv    ConversationClient
	speech  SpeechClient
	player  Player
	session SessionView
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewOrchestrator creates a turn orchestrator
func NewOrchestrator(conv ConversationClient, speech SpeechClient, player Player, session SessionView) *Orchestrator {
	return &Orchestrator{
		conv:    conv,
		speech:  speech,
		player:  player,
		session: session,
		logger:  logger.Get(),
	}
}

// SetMetrics attaches Prometheus instruments; nil is allowed
func (o *Orchestrator) SetMetrics(m *observability.Metrics) {
	o.metrics = m
}

// RunTurn executes one full request -> reply cycle. Steps run strictly
// in sequence; the first failure aborts the turn with a typed error and
// no step is retried.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	turnID := uuid.NewString()
	started := time.Now()

	personaKey, assistantID := o.session.PersonaAssistantID()
	voiceID := o.session.Voice()

	log := o.logger.With(
		zap.String("turn_id", turnID),
		zap.String("user_id", req.UserID),
		zap.String("persona", personaKey),
	)
	log.Info("Turn started", zap.Bool("speak", req.Speak))

	notify := func(stage Stage) {
		log.Debug("Turn stage", zap.String("stage", string(stage)))
		if req.OnStage != nil {
			req.OnStage(stage)
		}
	}
	abort := func(stage Stage, err error) (*TurnResult, error) {
		log.Warn("Turn aborted",
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		o.metrics.ObserveStageFailure(string(stage))
		o.metrics.ObserveTurn("aborted", time.Since(started))
		return nil, err
	}

	notify(StageThreadResolving)
	threadID, err := o.conv.GetOrCreateThread(ctx, req.UserID)
	if err != nil {
		return abort(StageThreadResolving, err)
	}

	notify(StageMessageSubmitting)
	if err := o.conv.AppendUserMessage(ctx, threadID, req.Text); err != nil {
		return abort(StageMessageSubmitting, err)
	}

	notify(StageAssistantRunning)
	reply, err := o.conv.RunToCompletion(ctx, threadID, assistantID, req.Username)
	if err != nil {
		return abort(StageAssistantRunning, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return abort(StageAssistantRunning, errors.NoResponse("assistant returned empty text"))
	}

	result := &TurnResult{
		TurnID:        turnID,
		ThreadID:      threadID,
		AssistantText: reply,
	}

	if req.Speak {
		notify(StageSynthesizing)
		stream, err := o.speech.Synthesize(ctx, reply, voiceID)
		if err != nil {
			return abort(StageSynthesizing, err)
		}

		notify(StageDelivering)
		err = o.player.Deliver(ctx, req.GuildID, stream)
		stream.Close()
		if err != nil {
			return abort(StageDelivering, err)
		}
	}

	notify(StageDone)
	o.metrics.ObserveTurn("done", time.Since(started))
	log.Info("Turn completed",
		zap.String("thread_id", threadID),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
