package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/vipul43/scout-worker/internal/ai"
	"github.com/vipul43/scout-worker/internal/config"
	"github.com/vipul43/scout-worker/internal/database"
	"github.com/vipul43/scout-worker/internal/gmail"
	"github.com/vipul43/scout-worker/internal/poller"
	"github.com/vipul43/scout-worker/internal/registry"
	"github.com/vipul43/scout-worker/internal/repository"
	"github.com/vipul43/scout-worker/internal/server"
	"github.com/vipul43/scout-worker/internal/service"
	"github.com/vipul43/scout-worker/internal/watcher"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Msg("database connected")

	if err := db.RunMigrations(); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")

	// Repositories
	competitorRepo := repository.NewCompetitorRepository(db.Gorm)
	emailRepo := repository.NewEmailRepository(db.Gorm)
	syncStateRepo := repository.NewSyncStateRepository(db.Gorm)
	cronRunRepo := repository.NewCronRunRepository(db.SQL)
	logRepo := repository.NewIngestionLogRepository(db.SQL)

	// Domain registry cache over the competitors table
	domainRegistry := registry.New(competitorRepo, cfg.DomainCacheTTL)

	// Providers
	gmailClient := gmail.NewClient(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken)
	aiClient := ai.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, log)

	mailPoller := poller.New(gmailClient, domainRegistry, syncStateRepo, cfg.SyncWindowDays, cfg.FetchBatchSize, log)

	orchestrator := service.NewOrchestrator(
		mailPoller,
		domainRegistry,
		competitorRepo,
		emailRepo,
		syncStateRepo,
		cronRunRepo,
		logRepo,
		aiClient,
		log,
	)

	handler := server.NewHandler(orchestrator, cronRunRepo, logRepo, log)
	srv := server.New(handler, cfg.CronSecret, cfg.JWTSecret, cfg.Port, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)

	w := watcher.New(orchestrator, cfg.IngestInterval, log)
	if w.Enabled() {
		go func() {
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				errChan <- err
			}
		}()
	}

	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	log.Info().Msg("application stopped")
	return nil
}
