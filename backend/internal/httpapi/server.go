package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brewbot/backend/internal/catalog"
	"brewbot/backend/internal/observability"
	"brewbot/backend/internal/session"
	"brewbot/backend/pkg/config"
	"brewbot/backend/pkg/logger"
)

// Server exposes the read-only status API next to the bot: health
// check, current session state, the selection catalogs and Prometheus
// metrics.
type Server struct {
	cfg     *config.Config
	session *session.Manager
	cats    *catalog.Catalogs
	logger  *zap.Logger

	srv *http.Server
}

func NewServer(cfg *config.Config, mgr *session.Manager, cats *catalog.Catalogs) *Server {
	s := &Server{
		cfg:     cfg,
		session: mgr,
		cats:    cats,
		logger:  logger.Get(),
	}
	s.srv = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.router(),
	}
	return s
}

func (s *Server) router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(s.logger))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	api := router.Group("/api")
	{
		api.GET("/session", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.session.Snapshot())
		})

		api.GET("/catalogs", func(c *gin.Context) {
			personas := make([]gin.H, 0, len(s.cats.Personas))
			for _, p := range s.cats.Personas {
				personas = append(personas, gin.H{"key": p.Key, "name": p.FriendlyName})
			}
			voices := make([]gin.H, 0, len(s.cats.Voices))
			for _, v := range s.cats.Voices {
				voices = append(voices, gin.H{"id": v.ID, "label": v.Label})
			}
			languages := make([]gin.H, 0, len(s.cats.Languages))
			for _, l := range s.cats.Languages {
				languages = append(languages, gin.H{"code": l.Code, "label": l.Label})
			}
			c.JSON(http.StatusOK, gin.H{
				"personas":  personas,
				"voices":    voices,
				"languages": languages,
			})
		})
	}

	return router
}

// Start runs the HTTP server until it is shut down. ErrServerClosed is
// swallowed so a graceful shutdown does not surface as a failure.
func (s *Server) Start() error {
	s.logger.Info("Status API listening", zap.String("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
