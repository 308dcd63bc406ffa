package models

import "time"

// Email is one successfully ingested competitor message. (org_id, message_id)
// is unique at the schema level; re-ingestion is rejected before insert and
// the constraint is the safety net under concurrent runs.
type Email struct {
	ID            string      `gorm:"column:id;primaryKey"`
	OrgID         string      `gorm:"column:org_id;index"`
	MessageID     string      `gorm:"column:message_id"`
	Subject       string      `gorm:"column:subject"`
	SenderAddress string      `gorm:"column:sender_address;index"`
	SenderName    *string     `gorm:"column:sender_name"`
	ReceivedAt    time.Time   `gorm:"column:received_at;index"`
	BodyText      *string     `gorm:"column:body_text"`
	BodyHTML      *string     `gorm:"column:body_html"`
	Snippet       string      `gorm:"column:snippet"`
	CompetitorID  string      `gorm:"column:competitor_id;index"`
	AISummary     *string     `gorm:"column:ai_summary"`
	AICategory    *string     `gorm:"column:ai_category"`
	AITags        StringArray `gorm:"column:ai_tags;type:text[]"`
	AISentiment   *string     `gorm:"column:ai_sentiment"`
	AIProcessedAt *time.Time  `gorm:"column:ai_processed_at"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Email) TableName() string {
	return "emails"
}

// ParsedMessage is the in-memory normalized form of a polled Gmail message.
// It lives only between parsing and persistence.
type ParsedMessage struct {
	MessageID     string
	Subject       string
	SenderAddress string
	SenderName    *string
	ReceivedAt    time.Time
	BodyText      *string
	BodyHTML      *string
	Snippet       string
}
