package models

import "time"

// Ingestion log status constants
const (
	LogStatusSuccess   = "success"
	LogStatusDuplicate = "duplicate"
	LogStatusSkipped   = "skipped"
	LogStatusFailed    = "failed"
)

// IngestionLog records one processing attempt of a polled message, whatever
// the outcome. Rows are append-only and never updated.
type IngestionLog struct {
	ID           string
	OrgID        string
	MessageID    *string // nil when parsing itself failed
	Status       string
	ErrorMessage *string
	ProcessedAt  time.Time
}
