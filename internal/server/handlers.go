package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/vipul43/scout-worker/internal/models"
	"github.com/vipul43/scout-worker/internal/service"
)

const defaultPageSize = 20

// IngestionRunner starts one ingestion pass
type IngestionRunner interface {
	Run(ctx context.Context, trigger, orgID string) (*service.RunResult, error)
}

// RunLedger reads the run-level history
type RunLedger interface {
	List(ctx context.Context, orgID, status string, page, pageSize int) ([]models.CronRun, error)
	Stats(ctx context.Context, orgID string) (*models.RunStats, error)
}

// LogLedger reads the message-level history
type LogLedger interface {
	List(ctx context.Context, orgID, status string, page, pageSize int) ([]models.IngestionLog, error)
}

type Handler struct {
	runner IngestionRunner
	runs   RunLedger
	logs   LogLedger
	log    zerolog.Logger
}

func NewHandler(runner IngestionRunner, runs RunLedger, logs LogLedger, log zerolog.Logger) *Handler {
	return &Handler{runner: runner, runs: runs, logs: logs, log: log}
}

// HandleCron runs a scheduler-triggered ingestion pass
func (h *Handler) HandleCron(c *gin.Context) {
	h.runIngestion(c, models.TriggerCron, "")
}

// HandleTrigger runs a manual ingestion pass for the caller's org
func (h *Handler) HandleTrigger(c *gin.Context) {
	h.runIngestion(c, models.TriggerManual, c.GetString(orgIDKey))
}

func (h *Handler) runIngestion(c *gin.Context, trigger, orgID string) {
	result, err := h.runner.Run(c.Request.Context(), trigger, orgID)
	if err != nil {
		if errors.Is(err, service.ErrNoMailboxConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no mailbox configured for ingestion"})
			return
		}
		h.log.Error().Err(err).Str("trigger", trigger).Msg("ingestion run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed":  result.Processed,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	})
}

// ListRuns returns the org's run history plus aggregate stats over recent runs
func (h *Handler) ListRuns(c *gin.Context) {
	orgID := c.GetString(orgIDKey)
	status := c.Query("status")
	page := parsePage(c.Query("page"))

	runs, err := h.runs.List(c.Request.Context(), orgID, status, page, defaultPageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list cron runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	stats, err := h.runs.Stats(c.Request.Context(), orgID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to compute run stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute run stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": runsResponse(runs),
		"stats": gin.H{
			"total_runs":      stats.TotalRuns,
			"success_rate":    stats.SuccessRate,
			"avg_duration_ms": stats.AvgDurationMs,
		},
		"page": page,
	})
}

// ListLogs returns the org's per-message ingestion history
func (h *Handler) ListLogs(c *gin.Context) {
	orgID := c.GetString(orgIDKey)
	status := c.Query("status")
	page := parsePage(c.Query("page"))

	entries, err := h.logs.List(c.Request.Context(), orgID, status, page, defaultPageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list ingestion logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list ingestion logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": logsResponse(entries),
		"page": page,
	})
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func runsResponse(runs []models.CronRun) []gin.H {
	out := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		out = append(out, gin.H{
			"id":                run.ID,
			"status":            run.Status,
			"trigger":           run.Trigger,
			"started_at":        run.StartedAt,
			"finished_at":       run.FinishedAt,
			"emails_processed":  run.EmailsProcessed,
			"emails_duplicates": run.EmailsDuplicates,
			"emails_failed":     run.EmailsFailed,
			"error_message":     run.ErrorMessage,
			"duration_ms":       run.DurationMs,
		})
	}
	return out
}

func logsResponse(entries []models.IngestionLog) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"id":            entry.ID,
			"message_id":    entry.MessageID,
			"status":        entry.Status,
			"error_message": entry.ErrorMessage,
			"processed_at":  entry.ProcessedAt,
		})
	}
	return out
}
