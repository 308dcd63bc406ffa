package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vipul43/scout-worker/internal/models"
)

// ErrRunAlreadyFinished is returned when a terminal transition is attempted
// on a run that is no longer in the running state. The running -> terminal
// transition happens exactly once.
var ErrRunAlreadyFinished = errors.New("cron run already finished")

type CronRunRepository struct {
	db *sql.DB
}

func NewCronRunRepository(db *sql.DB) *CronRunRepository {
	return &CronRunRepository{db: db}
}

// Create inserts a new run in the running state before any work begins
func (r *CronRunRepository) Create(ctx context.Context, run models.CronRun) error {
	query := `
		INSERT INTO cron_runs (
			id, org_id, status, trigger, started_at,
			emails_processed, emails_duplicates, emails_failed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.OrgID,
		run.Status,
		run.Trigger,
		run.StartedAt,
		run.EmailsProcessed,
		run.EmailsDuplicates,
		run.EmailsFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to create cron run: %w", err)
	}

	return nil
}

// MarkSuccess finishes a running run with its aggregate counts. The status
// guard makes the transition a no-op on an already-finished run.
func (r *CronRunRepository) MarkSuccess(ctx context.Context, runID string, processed, duplicates, failed int, durationMs int64) error {
	query := `
		UPDATE cron_runs
		SET status = $1, finished_at = $2, emails_processed = $3,
		    emails_duplicates = $4, emails_failed = $5, duration_ms = $6
		WHERE id = $7 AND status = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		models.RunStatusSuccess, time.Now(), processed, duplicates, failed, durationMs,
		runID, models.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run success: %w", err)
	}

	return checkTransition(result)
}

// MarkFailed finishes a running run with the fatal error message
func (r *CronRunRepository) MarkFailed(ctx context.Context, runID string, errorMessage string, durationMs int64) error {
	query := `
		UPDATE cron_runs
		SET status = $1, finished_at = $2, error_message = $3, duration_ms = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		models.RunStatusFailed, time.Now(), errorMessage, durationMs,
		runID, models.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}

	return checkTransition(result)
}

func checkTransition(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRunAlreadyFinished
	}
	return nil
}

// List retrieves runs for an org, newest first, optionally filtered by status
func (r *CronRunRepository) List(ctx context.Context, orgID, status string, page, pageSize int) ([]models.CronRun, error) {
	query := `
		SELECT id, org_id, status, trigger, started_at, finished_at,
		       emails_processed, emails_duplicates, emails_failed,
		       error_message, duration_ms
		FROM cron_runs
		WHERE org_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4
	`

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx, query, orgID, status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query cron runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CronRun
	for rows.Next() {
		var run models.CronRun
		err := rows.Scan(
			&run.ID,
			&run.OrgID,
			&run.Status,
			&run.Trigger,
			&run.StartedAt,
			&run.FinishedAt,
			&run.EmailsProcessed,
			&run.EmailsDuplicates,
			&run.EmailsFailed,
			&run.ErrorMessage,
			&run.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cron run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return runs, nil
}

// Stats computes success rate and average duration over the org's last 30
// finished runs
func (r *CronRunRepository) Stats(ctx context.Context, orgID string) (*models.RunStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(CASE WHEN status = 'success' THEN 1.0 ELSE 0.0 END), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM (
			SELECT status, duration_ms
			FROM cron_runs
			WHERE org_id = $1 AND status <> 'running'
			ORDER BY started_at DESC
			LIMIT 30
		) recent
	`

	var stats models.RunStats
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&stats.TotalRuns,
		&stats.SuccessRate,
		&stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute run stats: %w", err)
	}

	return &stats, nil
}
