package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j (thread store)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// OpenAI
	OpenAIAPIKey      string
	AssistantIDBrew   string
	AssistantIDSage   string
	AssistantIDJester string

	// Discord
	DiscordBotToken string
	DiscordAppID    string
	DiscordGuildID  string // empty registers commands globally

	// Defaults for the shared session
	DefaultPersona  string
	DefaultVoice    string
	DefaultLanguage string

	// Audio
	ClipDir      string // durable copy of the last spoken reply
	GreetingClip string

	// Turn pipeline
	RunPollInterval time.Duration
	RunTimeout      time.Duration
	IdleTimeout     time.Duration // voice disconnect after this quiet period
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		AssistantIDBrew:   getEnv("OPENAI_ASSISTANT_ID_BREW", ""),
		AssistantIDSage:   getEnv("OPENAI_ASSISTANT_ID_SAGE", ""),
		AssistantIDJester: getEnv("OPENAI_ASSISTANT_ID_JESTER", ""),
		DiscordBotToken:   getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordAppID:      getEnv("DISCORD_APP_ID", ""),
		DiscordGuildID:    getEnv("DISCORD_GUILD_ID", ""),
		DefaultPersona:    getEnv("DEFAULT_PERSONA", "brew"),
		DefaultVoice:      getEnv("DEFAULT_VOICE", "onyx"),
		DefaultLanguage:   getEnv("DEFAULT_LANGUAGE", "en"),
		ClipDir:           getEnv("CLIP_DIR", "audio_clips"),
		GreetingClip:      getEnv("GREETING_CLIP", "audio_clips/greeting.ogg"),
		RunPollInterval:   getEnvDuration("RUN_POLL_INTERVAL", time.Second),
		RunTimeout:        getEnvDuration("RUN_TIMEOUT", 2*time.Minute),
		IdleTimeout:       getEnvDuration("IDLE_TIMEOUT", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT must be positive")
	}
	// OpenAI key and Discord token are optional for development
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
