package agent

import (
	"context"
	"io"
	"strings"
	"testing"

	"brewbot/backend/pkg/errors"
)

// Mock implementations for testing

type mockConversation struct {
	threadID      string
	createCalls   int
	appended      []string
	runAddressAs  string
	runAssistant  string
	reply         string
	getThreadErr  error
	appendErr     error
	runErr        error
}

func (m *mockConversation) GetOrCreateThread(ctx context.Context, userID string) (string, error) {
	m.createCalls++
	if m.getThreadErr != nil {
		return "", m.getThreadErr
	}
	if m.threadID == "" {
		m.threadID = "thread_1"
	}
	return m.threadID, nil
}

func (m *mockConversation) AppendUserMessage(ctx context.Context, threadID, text string) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, text)
	return nil
}

func (m *mockConversation) RunToCompletion(ctx context.Context, threadID, assistantID, addressAs string) (string, error) {
	m.runAssistant = assistantID
	m.runAddressAs = addressAs
	if m.runErr != nil {
		return "", m.runErr
	}
	return m.reply, nil
}

type mockSpeech struct {
	text  string
	voice string
	calls int
	err   error
}

func (m *mockSpeech) Synthesize(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	m.calls++
	m.text = text
	m.voice = voiceID
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader("audio-bytes")), nil
}

type mockPlayer struct {
	guildID string
	calls   int
	err     error
}

func (m *mockPlayer) Deliver(ctx context.Context, guildID string, src io.Reader) error {
	m.calls++
	m.guildID = guildID
	if m.err != nil {
		return m.err
	}
	_, _ = io.Copy(io.Discard, src)
	return nil
}

type mockSession struct {
	persona     string
	assistantID string
	voice       string
}

func (m *mockSession) PersonaAssistantID() (string, string) {
	return m.persona, m.assistantID
}

func (m *mockSession) Voice() string {
	return m.voice
}

func newTestOrchestrator(conv *mockConversation, speech *mockSpeech, player *mockPlayer) (*Orchestrator, *mockSession) {
	session := &mockSession{persona: "brew", assistantID: "asst_brew", voice: "onyx"}
	return NewOrchestrator(conv, speech, player, session), session
}

func TestRunTurn_HappyPath(t *testing.T) {
	conv := &mockConversation{reply: "  Hello Alex, nice to meet you.  "}
	speech := &mockSpeech{}
	player := &mockPlayer{}
	orch, _ := newTestOrchestrator(conv, speech, player)

	var stages []Stage
	result, err := orch.RunTurn(context.Background(), TurnRequest{
		UserID:   "user-1",
		Username: "Alex",
		Text:     "Hello",
		GuildID:  "guild-1",
		Speak:    true,
		OnStage:  func(s Stage) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	if conv.createCalls != 1 {
		t.Errorf("Expected one thread resolution, got %d", conv.createCalls)
	}
	if len(conv.appended) != 1 || conv.appended[0] != "Hello" {
		t.Errorf("Expected one appended user message 'Hello', got %v", conv.appended)
	}
	if conv.runAssistant != "asst_brew" {
		t.Errorf("Expected run with assistant 'asst_brew', got '%s'", conv.runAssistant)
	}
	if conv.runAddressAs != "Alex" {
		t.Errorf("Expected addressing instruction for 'Alex', got '%s'", conv.runAddressAs)
	}
	if speech.text != "Hello Alex, nice to meet you." {
		t.Errorf("Expected trimmed reply passed to synthesis, got '%s'", speech.text)
	}
	if speech.voice != "onyx" {
		t.Errorf("Expected synthesis with voice 'onyx', got '%s'", speech.voice)
	}
	if player.calls != 1 || player.guildID != "guild-1" {
		t.Errorf("Expected one delivery to guild-1, got %d calls for '%s'", player.calls, player.guildID)
	}
	if result.AssistantText != "Hello Alex, nice to meet you." {
		t.Errorf("Unexpected assistant text: '%s'", result.AssistantText)
	}

	want := []Stage{StageThreadResolving, StageMessageSubmitting, StageAssistantRunning, StageSynthesizing, StageDelivering, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("Expected stages %v, got %v", want, stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("Stage %d: expected %s, got %s", i, want[i], stages[i])
		}
	}
}

func TestRunTurn_RunFailureAbortsWithNoResponse(t *testing.T) {
	conv := &mockConversation{runErr: errors.NoResponse("run ended with status failed")}
	speech := &mockSpeech{}
	player := &mockPlayer{}
	orch, session := newTestOrchestrator(conv, speech, player)

	_, err := orch.RunTurn(context.Background(), TurnRequest{
		UserID:   "user-1",
		Username: "Alex",
		Text:     "Hello",
		GuildID:  "guild-1",
		Speak:    true,
	})
	if !errors.Is(err, errors.KindNoResponse) {
		t.Fatalf("Expected NoResponse, got %v", err)
	}

	// The pipeline stops at the failed stage
	if speech.calls != 0 {
		t.Errorf("Expected no synthesis after run failure, got %d calls", speech.calls)
	}
	if player.calls != 0 {
		t.Errorf("Expected no delivery after run failure, got %d calls", player.calls)
	}

	// The failed turn never wrote session state
	if session.persona != "brew" || session.voice != "onyx" {
		t.Errorf("Session selections changed by a failed turn: %+v", session)
	}
}

func TestRunTurn_EmptyReplyIsNoResponse(t *testing.T) {
	conv := &mockConversation{reply: "   "}
	orch, _ := newTestOrchestrator(conv, &mockSpeech{}, &mockPlayer{})

	_, err := orch.RunTurn(context.Background(), TurnRequest{UserID: "user-1", Username: "Alex", Text: "Hi", Speak: false})
	if !errors.Is(err, errors.KindNoResponse) {
		t.Fatalf("Expected NoResponse for empty reply, got %v", err)
	}
}

func TestRunTurn_SynthesisFailureAborts(t *testing.T) {
	conv := &mockConversation{reply: "Hi there"}
	speech := &mockSpeech{err: errors.SynthesisFailed("tts down", nil)}
	player := &mockPlayer{}
	orch, _ := newTestOrchestrator(conv, speech, player)

	_, err := orch.RunTurn(context.Background(), TurnRequest{UserID: "u", Username: "Alex", Text: "Hi", GuildID: "g", Speak: true})
	if !errors.Is(err, errors.KindSynthesisFailed) {
		t.Fatalf("Expected SynthesisFailed, got %v", err)
	}
	if player.calls != 0 {
		t.Errorf("Expected no delivery after synthesis failure, got %d calls", player.calls)
	}
}

func TestRunTurn_DeliveryFailureAborts(t *testing.T) {
	conv := &mockConversation{reply: "Hi there"}
	player := &mockPlayer{err: errors.PlaybackFailed("voice gone", nil)}
	orch, _ := newTestOrchestrator(conv, &mockSpeech{}, player)

	_, err := orch.RunTurn(context.Background(), TurnRequest{UserID: "u", Username: "Alex", Text: "Hi", GuildID: "g", Speak: true})
	if !errors.Is(err, errors.KindPlaybackFailed) {
		t.Fatalf("Expected PlaybackFailed, got %v", err)
	}
}

func TestRunTurn_TextOnlySkipsAudio(t *testing.T) {
	conv := &mockConversation{reply: "Just text"}
	speech := &mockSpeech{}
	player := &mockPlayer{}
	orch, _ := newTestOrchestrator(conv, speech, player)

	result, err := orch.RunTurn(context.Background(), TurnRequest{UserID: "u", Username: "Alex", Text: "Hi", Speak: false})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if result.AssistantText != "Just text" {
		t.Errorf("Unexpected text: '%s'", result.AssistantText)
	}
	if speech.calls != 0 || player.calls != 0 {
		t.Errorf("Expected no audio pipeline for a text-only turn (speech=%d, player=%d)", speech.calls, player.calls)
	}
}
