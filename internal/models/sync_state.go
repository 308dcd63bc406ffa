package models

import "time"

// SyncState tracks one monitored mailbox. HistoryID is informational only:
// every poll rescans the full rolling window and relies on dedup, so a stale
// history marker can never lose messages.
type SyncState struct {
	ID         string     `gorm:"column:id;primaryKey"`
	Email      string     `gorm:"column:email;uniqueIndex"`
	OrgID      string     `gorm:"column:org_id;index"`
	HistoryID  *string    `gorm:"column:history_id"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "gmail_sync_state"
}
