package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server wraps the gin engine and the underlying http.Server so main can
// drive graceful shutdown
type Server struct {
	engine *gin.Engine
	http   *http.Server
	log    zerolog.Logger
}

func New(handler *Handler, cronSecret, jwtSecret, port string, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", handler.Health)

	ingestion := engine.Group("/ingestion")
	{
		// Hosted schedulers differ on the verb they call with
		ingestion.GET("/cron", CronAuthMiddleware(cronSecret), handler.HandleCron)
		ingestion.POST("/cron", CronAuthMiddleware(cronSecret), handler.HandleCron)

		ingestion.POST("/trigger", JWTAuthMiddleware(jwtSecret), handler.HandleTrigger)
		ingestion.GET("/log", JWTAuthMiddleware(jwtSecret), handler.ListLogs)
	}

	cron := engine.Group("/cron")
	{
		cron.GET("/runs", JWTAuthMiddleware(jwtSecret), handler.ListRuns)
	}

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		log: log,
	}
}

// Start blocks serving HTTP until the listener closes
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Engine exposes the router for tests
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
