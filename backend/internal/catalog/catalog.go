package catalog

import (
	"brewbot/backend/pkg/config"
	"brewbot/backend/pkg/logger"

	"go.uber.org/zap"
)

// Persona is a configured assistant identity
type Persona struct {
	Key          string
	AssistantID  string
	FriendlyName string
}

// Voice is a synthesis voice offered on the control panel
type Voice struct {
	ID    string
	Label string
}

// Language is a reply language offered on the control panel
type Language struct {
	Code  string
	Label string
}

// Catalogs holds the fixed persona/voice/language options plus the
// configured defaults
type Catalogs struct {
	Personas  []Persona
	Voices    []Voice
	Languages []Language

	DefaultPersona  string
	DefaultVoice    string
	DefaultLanguage string
}

// New builds the catalogs from configuration. The option sets are fixed;
// only assistant IDs and defaults come from the environment.
func New(cfg *config.Config) *Catalogs {
	return &Catalogs{
		Personas: []Persona{
			{Key: "brew", AssistantID: cfg.AssistantIDBrew, FriendlyName: "Brew"},
			{Key: "sage", AssistantID: cfg.AssistantIDSage, FriendlyName: "Sage"},
			{Key: "jester", AssistantID: cfg.AssistantIDJester, FriendlyName: "Jester"},
		},
		Voices: []Voice{
			{ID: "onyx", Label: "Onyx"},
			{ID: "alloy", Label: "Alloy"},
			{ID: "echo", Label: "Echo"},
			{ID: "fable", Label: "Fable"},
			{ID: "nova", Label: "Nova"},
			{ID: "shimmer", Label: "Shimmer"},
		},
		Languages: []Language{
			{Code: "en", Label: "English"},
			{Code: "af", Label: "Afrikaans"},
			{Code: "el", Label: "Greek"},
			{Code: "it", Label: "Italian"},
		},
		DefaultPersona:  cfg.DefaultPersona,
		DefaultVoice:    cfg.DefaultVoice,
		DefaultLanguage: cfg.DefaultLanguage,
	}
}

// Validate corrects invalid configured defaults back to the hardcoded
// fallbacks (the first entry of each catalog) and warns about each fix
func (c *Catalogs) Validate() {
	log := logger.Get()

	if _, ok := c.PersonaByKey(c.DefaultPersona); !ok {
		log.Warn("Configured default persona is not in the catalog, reverting",
			zap.String("configured", c.DefaultPersona),
			zap.String("fallback", c.Personas[0].Key),
		)
		c.DefaultPersona = c.Personas[0].Key
	}

	if _, ok := c.VoiceByID(c.DefaultVoice); !ok {
		log.Warn("Configured default voice is not in the catalog, reverting",
			zap.String("configured", c.DefaultVoice),
			zap.String("fallback", c.Voices[0].ID),
		)
		c.DefaultVoice = c.Voices[0].ID
	}

	if _, ok := c.LanguageByCode(c.DefaultLanguage); !ok {
		log.Warn("Configured default language is not in the catalog, reverting",
			zap.String("configured", c.DefaultLanguage),
			zap.String("fallback", c.Languages[0].Code),
		)
		c.DefaultLanguage = c.Languages[0].Code
	}
}

// PersonaByKey looks up a persona by key. Linear scan; the catalog holds
// three entries.
func (c *Catalogs) PersonaByKey(key string) (Persona, bool) {
	for _, p := range c.Personas {
		if p.Key == key {
			return p, true
		}
	}
	return Persona{}, false
}

// VoiceByID looks up a voice by identifier
func (c *Catalogs) VoiceByID(id string) (Voice, bool) {
	for _, v := range c.Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// LanguageByCode looks up a language by code
func (c *Catalogs) LanguageByCode(code string) (Language, bool) {
	for _, l := range c.Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}
