package catalog

import (
	"testing"

	"brewbot/backend/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestNew_BuildsFromConfig(t *testing.T) {
	c := New(&config.Config{
		AssistantIDBrew:   "asst_1",
		AssistantIDSage:   "asst_2",
		AssistantIDJester: "asst_3",
		DefaultPersona:    "sage",
		DefaultVoice:      "nova",
		DefaultLanguage:   "it",
	})

	p, ok := c.PersonaByKey("sage")
	assert.True(t, ok)
	assert.Equal(t, "asst_2", p.AssistantID)

	assert.Equal(t, "sage", c.DefaultPersona)
	assert.Equal(t, "nova", c.DefaultVoice)
	assert.Equal(t, "it", c.DefaultLanguage)
}

func TestValidate_CorrectsInvalidDefaults(t *testing.T) {
	c := New(&config.Config{
		DefaultPersona:  "ghost",
		DefaultVoice:    "whisper",
		DefaultLanguage: "xx",
	})

	c.Validate()

	assert.Equal(t, c.Personas[0].Key, c.DefaultPersona)
	assert.Equal(t, c.Voices[0].ID, c.DefaultVoice)
	assert.Equal(t, c.Languages[0].Code, c.DefaultLanguage)
}

func TestValidate_KeepsValidDefaults(t *testing.T) {
	c := New(&config.Config{
		DefaultPersona:  "jester",
		DefaultVoice:    "echo",
		DefaultLanguage: "af",
	})

	c.Validate()

	assert.Equal(t, "jester", c.DefaultPersona)
	assert.Equal(t, "echo", c.DefaultVoice)
	assert.Equal(t, "af", c.DefaultLanguage)
}

func TestLookups_MissAndHit(t *testing.T) {
	c := New(&config.Config{})

	_, ok := c.PersonaByKey("nope")
	assert.False(t, ok)
	_, ok = c.VoiceByID("nope")
	assert.False(t, ok)
	_, ok = c.LanguageByCode("nope")
	assert.False(t, ok)

	v, ok := c.VoiceByID("shimmer")
	assert.True(t, ok)
	assert.Equal(t, "Shimmer", v.Label)
}
