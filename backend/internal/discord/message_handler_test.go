package discord

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "brewbot/backend/pkg/errors"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		maxLength  int
		wantChunks int
	}{
		{
			name:       "short message stays whole",
			content:    "hello there",
			maxLength:  2000,
			wantChunks: 1,
		},
		{
			name:       "splits at newline boundary",
			content:    strings.Repeat("a line of text\n", 20),
			maxLength:  100,
			wantChunks: 4,
		},
		{
			name:       "hard split with no boundaries",
			content:    strings.Repeat("x", 250),
			maxLength:  100,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitMessage(tt.content, tt.maxLength)
			assert.Len(t, chunks, tt.wantChunks)
			for i, chunk := range chunks {
				assert.LessOrEqual(t, len(chunk), tt.maxLength, "chunk %d too long", i)
				assert.NotEmpty(t, chunk)
			}
		})
	}
}

func TestSplitMessage_PreservesContent(t *testing.T) {
	content := "first line\nsecond line\nthird line"
	chunks := splitMessage(content, 15)

	joined := strings.Join(chunks, "\n")
	assert.Equal(t, content, joined)
}

func TestUserMessage_OneNoticePerKind(t *testing.T) {
	// Every pipeline error maps to a distinct, non-empty notice
	seen := map[string]bool{}
	for _, err := range []error{
		apperrors.BackendUnavailable("down", nil),
		apperrors.NoResponse("empty"),
		apperrors.RunTimeout("slow"),
		apperrors.SynthesisFailed("tts", nil),
		apperrors.PlaybackFailed("voice", nil),
		apperrors.NotFound("missing"),
	} {
		msg := userMessage(err)
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate notice %q", msg)
		seen[msg] = true
	}
}
