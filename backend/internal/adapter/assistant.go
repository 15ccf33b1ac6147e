package adapter

import (
	"context"
	"fmt"
	"time"

	"brewbot/backend/pkg/errors"
	"brewbot/backend/pkg/logger"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// assistantAPI is the slice of the OpenAI client the adapter needs.
// *openai.Client satisfies it; tests inject fakes.
type assistantAPI interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

// ThreadStore persists the user -> thread mapping
type ThreadStore interface {
	GetThreadID(ctx context.Context, userID string) (string, error)
	SaveThreadID(ctx context.Context, userID, threadID string) error
}

// AssistantAdapter drives one conversation turn against the OpenAI
// Assistants API: get-or-create thread, append message, run to
// completion with bounded polling.
//
// Callers must not run two completions concurrently for the same
// thread; this is not enforced here.
type AssistantAdapter struct {
	api          assistantAPI
	store        ThreadStore
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       *zap.Logger
}

// NewAssistantAdapter creates an adapter over the given OpenAI client
func NewAssistantAdapter(client *openai.Client, store ThreadStore, pollInterval, runTimeout time.Duration) *AssistantAdapter {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	return &AssistantAdapter{
		api:          client,
		store:        store,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
		logger:       logger.Get(),
	}
}

// GetOrCreateThread returns the user's thread id, creating and
// persisting a new thread on first use. Nothing is persisted when
// creation fails.
func (a *AssistantAdapter) GetOrCreateThread(ctx context.Context, userID string) (string, error) {
	threadID, err := a.store.GetThreadID(ctx, userID)
	if err != nil {
		return "", errors.BackendUnavailable("failed to look up thread mapping", err)
	}
	if threadID != "" {
		return threadID, nil
	}

	thread, err := a.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", errors.BackendUnavailable("failed to create thread", err)
	}

	if err := a.store.SaveThreadID(ctx, userID, thread.ID); err != nil {
		return "", errors.BackendUnavailable("failed to persist thread mapping", err)
	}

	a.logger.Info("Created new assistant thread",
		zap.String("user_id", userID),
		zap.String("thread_id", thread.ID),
	)
	return thread.ID, nil
}

// AppendUserMessage adds the user's text to the thread. Not retried;
// the caller aborts the turn on failure.
func (a *AssistantAdapter) AppendUserMessage(ctx context.Context, threadID, text string) error {
	_, err := a.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return errors.BackendUnavailable("failed to append message to thread", err)
	}
	return nil
}

// RunToCompletion submits a run for the thread and polls until the
// backend reports a terminal status, bounded by the configured run
// timeout. Returns the latest assistant reply text on completion.
func (a *AssistantAdapter) RunToCompletion(ctx context.Context, threadID, assistantID, addressAs string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.runTimeout)
	defer cancel()

	run, err := a.api.CreateRun(runCtx, threadID, openai.RunRequest{
		AssistantID:            assistantID,
		AdditionalInstructions: fmt.Sprintf("Please address the user as %s.", addressAs),
	})
	if err != nil {
		return "", errors.BackendUnavailable("failed to submit run", err)
	}

	a.logger.Info("Run started",
		zap.String("thread_id", threadID),
		zap.String("run_id", run.ID),
		zap.String("assistant_id", assistantID),
	)

	for run.Status == openai.RunStatusQueued || run.Status == openai.RunStatusInProgress {
		select {
		case <-runCtx.Done():
			return "", errors.RunTimeout(fmt.Sprintf("run %s did not finish within %s", run.ID, a.runTimeout))
		case <-time.After(a.pollInterval):
		}

		run, err = a.api.RetrieveRun(runCtx, threadID, run.ID)
		if err != nil {
			if runCtx.Err() != nil {
				return "", errors.RunTimeout(fmt.Sprintf("run %s did not finish within %s", run.ID, a.runTimeout))
			}
			return "", errors.BackendUnavailable("failed to poll run", err)
		}
	}

	if run.Status != openai.RunStatusCompleted {
		a.logger.Warn("Run ended without completing",
			zap.String("run_id", run.ID),
			zap.String("status", string(run.Status)),
		)
		return "", errors.NoResponse(fmt.Sprintf("run ended with status %s", run.Status))
	}

	return a.latestAssistantText(runCtx, threadID)
}

// latestAssistantText fetches the newest message in the thread
func (a *AssistantAdapter) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 1
	order := "desc"
	messages, err := a.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", errors.BackendUnavailable("failed to list thread messages", err)
	}
	if len(messages.Messages) == 0 {
		return "", errors.NoResponse("no messages found in thread after run")
	}

	for _, content := range messages.Messages[0].Content {
		if content.Text != nil && content.Text.Value != "" {
			return content.Text.Value, nil
		}
	}
	return "", errors.NoResponse("latest thread message has no text content")
}
