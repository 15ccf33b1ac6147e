package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"brewbot/backend/internal/adapter"
	"brewbot/backend/internal/agent"
	"brewbot/backend/internal/audio"
	"brewbot/backend/internal/catalog"
	"brewbot/backend/internal/discord"
	"brewbot/backend/internal/graph"
	"brewbot/backend/internal/httpapi"
	"brewbot/backend/internal/observability"
	"brewbot/backend/internal/session"
	"brewbot/backend/pkg/config"
	"brewbot/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting brewbot...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}

	// Selection catalogs; invalid configured defaults are corrected here
	cats := catalog.New(cfg)
	cats.Validate()

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Initialize dependencies
	threadStore := graph.NewRepository(driver)
	client := openai.NewClient(cfg.OpenAIAPIKey)
	conversation := adapter.NewAssistantAdapter(client, threadStore, cfg.RunPollInterval, cfg.RunTimeout)
	speech := adapter.NewSpeechAdapter(client)
	pipeline := audio.NewPipeline(cfg.ClipDir)
	sessionMgr := session.NewManager(cats, cfg.IdleTimeout)
	player := discord.NewPlayer(sessionMgr, pipeline)
	metrics := observability.NewMetrics("brewbot")

	orch := agent.NewOrchestrator(conversation, speech, player, sessionMgr)
	orch.SetMetrics(metrics)

	// Create Discord session
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}

	handler := discord.NewHandler(cfg, cats, sessionMgr, orch, player)
	handler.SetMetrics(metrics)
	sessionMgr.SetCleanupHook(handler.PanelCleanup(dg))

	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		handler.HandleMessage(s, m)
	})
	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handler.HandleInteraction(s, i)
	})

	// Voice states are required for joining voice channels
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages | discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	// Open connection
	if err := dg.Open(); err != nil {
		log.Fatal("Failed to open Discord connection", zap.Error(err))
	}
	defer dg.Close()

	if err := discord.RegisterCommands(dg, cfg.DiscordAppID, cfg.DiscordGuildID); err != nil {
		log.Error("Failed to register application commands", zap.Error(err))
	} else {
		log.Info("Application commands registered", zap.String("guild_id", cfg.DiscordGuildID))
	}

	// Status HTTP API next to the gateway
	api := httpapi.NewServer(cfg, sessionMgr, cats)
	go func() {
		if err := api.Start(); err != nil {
			log.Error("Status API failed", zap.Error(err))
		}
	}()

	log.Info("brewbot is running. Press CTRL-C to exit.")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down brewbot...")

	// Tear down live voice connections and their control panels
	for _, guildID := range sessionMgr.Snapshot().Guilds {
		sessionMgr.Disconnect(guildID)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Error("Status API forced to shutdown", zap.Error(err))
	}
}
