package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vipul43/scout-worker/internal/models"
)

type IngestionLogRepository struct {
	db *sql.DB
}

func NewIngestionLogRepository(db *sql.DB) *IngestionLogRepository {
	return &IngestionLogRepository{db: db}
}

// Create appends one log entry. Entries are never updated afterwards.
func (r *IngestionLogRepository) Create(ctx context.Context, entry models.IngestionLog) error {
	query := `
		INSERT INTO ingestion_logs (
			id, org_id, message_id, status, error_message, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OrgID,
		entry.MessageID,
		entry.Status,
		entry.ErrorMessage,
		entry.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion log: %w", err)
	}

	return nil
}

// List retrieves log entries for an org, newest first, optionally filtered by
// status
func (r *IngestionLogRepository) List(ctx context.Context, orgID, status string, page, pageSize int) ([]models.IngestionLog, error) {
	query := `
		SELECT id, org_id, message_id, status, error_message, processed_at
		FROM ingestion_logs
		WHERE org_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY processed_at DESC
		LIMIT $3 OFFSET $4
	`

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := r.db.QueryContext(ctx, query, orgID, status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestion logs: %w", err)
	}
	defer rows.Close()

	var entries []models.IngestionLog
	for rows.Next() {
		var entry models.IngestionLog
		err := rows.Scan(
			&entry.ID,
			&entry.OrgID,
			&entry.MessageID,
			&entry.Status,
			&entry.ErrorMessage,
			&entry.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingestion log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
