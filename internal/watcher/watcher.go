package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/vipul43/scout-worker/internal/models"
	"github.com/vipul43/scout-worker/internal/service"
)

// IngestionRunner starts one ingestion pass
type IngestionRunner interface {
	Run(ctx context.Context, trigger, orgID string) (*service.RunResult, error)
}

// Watcher drives scheduled ingestion from inside the process. Deployments
// that use an external scheduler hitting the cron endpoint run with the
// watcher disabled.
type Watcher struct {
	runner   IngestionRunner
	interval time.Duration
	log      zerolog.Logger
}

func New(runner IngestionRunner, interval time.Duration, log zerolog.Logger) *Watcher {
	return &Watcher{
		runner:   runner,
		interval: interval,
		log:      log,
	}
}

// Enabled reports whether the in-process schedule is configured
func (w *Watcher) Enabled() bool {
	return w.interval > 0
}

// Start runs ingestion on the configured interval until the context is
// cancelled. Run failures are logged and the schedule keeps going.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.Enabled() {
		return nil
	}

	w.log.Info().Dur("interval", w.interval).Msg("starting ingestion watcher")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("watcher shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	result, err := w.runner.Run(ctx, models.TriggerCron, "")
	if err != nil {
		if errors.Is(err, service.ErrNoMailboxConfigured) {
			w.log.Warn().Msg("watcher tick skipped: no mailbox configured")
			return
		}
		w.log.Error().Err(err).Msg("scheduled ingestion run failed")
		return
	}

	w.log.Info().
		Int("processed", result.Processed).
		Int("duplicates", result.Duplicates).
		Int("failed", result.Failed).
		Msg("scheduled ingestion run finished")
}
