package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vipul43/scout-worker/internal/models"
	"gorm.io/gorm"
)

type EmailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// ExistsByMessageID reports whether an email with this provider message ID
// was already ingested for the org. This is the dedup fast path; the unique
// constraint on (org_id, message_id) is the safety net under races.
func (r *EmailRepository) ExistsByMessageID(ctx context.Context, orgID, messageID string) (bool, error) {
	var email models.Email
	result := r.db.WithContext(ctx).
		Select("id").
		Where("org_id = ? AND message_id = ?", orgID, messageID).
		First(&email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check email existence: %w", result.Error)
	}
	return true, nil
}

// Create inserts a new ingested email row
func (r *EmailRepository) Create(ctx context.Context, email *models.Email) error {
	if result := r.db.WithContext(ctx).Create(email); result.Error != nil {
		return fmt.Errorf("failed to create email: %w", result.Error)
	}
	return nil
}

// UpdateAnalysis writes AI enrichment fields onto an already-persisted email
func (r *EmailRepository) UpdateAnalysis(ctx context.Context, emailID string, summary, category, sentiment string, tags []string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", emailID).
		Updates(map[string]interface{}{
			"ai_summary":      summary,
			"ai_category":     category,
			"ai_sentiment":    sentiment,
			"ai_tags":         models.StringArray(tags),
			"ai_processed_at": now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update email analysis: %w", result.Error)
	}
	return nil
}
