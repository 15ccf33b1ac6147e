package adapter

import (
	"context"
	"io"

	"brewbot/backend/pkg/errors"
	"brewbot/backend/pkg/logger"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// speechAPI is the slice of the OpenAI client used for synthesis
type speechAPI interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// SpeechAdapter turns assistant text into an Ogg Opus audio stream.
// Opus is requested directly so the Discord voice transport can play it
// without transcoding.
type SpeechAdapter struct {
	api    speechAPI
	model  openai.SpeechModel
	logger *zap.Logger
}

// NewSpeechAdapter creates a speech adapter over the given OpenAI client
func NewSpeechAdapter(client *openai.Client) *SpeechAdapter {
	return &SpeechAdapter{
		api:    client,
		model:  openai.TTSModel1,
		logger: logger.Get(),
	}
}

// Synthesize converts text to speech with the given voice. The caller
// owns the returned stream and must close it.
func (s *SpeechAdapter) Synthesize(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	resp, err := s.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	if err != nil {
		return nil, errors.SynthesisFailed("speech synthesis request failed", err)
	}

	s.logger.Debug("Speech synthesis stream opened",
		zap.String("voice", voiceID),
		zap.Int("text_len", len(text)),
	)
	return resp, nil
}
