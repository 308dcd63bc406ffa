package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vipul43/scout-worker/internal/models"
	"gorm.io/gorm"
)

type SyncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// ListAll retrieves every monitored mailbox
func (r *SyncStateRepository) ListAll(ctx context.Context) ([]models.SyncState, error) {
	var states []models.SyncState
	result := r.db.WithContext(ctx).Order("created_at ASC").Find(&states)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sync states: %w", result.Error)
	}
	return states, nil
}

// GetOrCreate looks up the sync state for a mailbox, lazily creating it on
// first poll. The generated ID lives in Attrs, not the query condition, so
// the lookup matches on email alone.
func (r *SyncStateRepository) GetOrCreate(ctx context.Context, email, orgID string) (*models.SyncState, error) {
	state := models.SyncState{}
	result := r.db.WithContext(ctx).
		Where("email = ?", email).
		Attrs(models.SyncState{
			ID:    uuid.New().String(),
			Email: email,
			OrgID: orgID,
		}).
		FirstOrCreate(&state)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get or create sync state: %w", result.Error)
	}
	return &state, nil
}

// Touch records that a poll completed, found messages or not. Operators read
// last_sync_at to tell "checked, found nothing" from "never ran".
func (r *SyncStateRepository) Touch(ctx context.Context, id string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to touch sync state: %w", result.Error)
	}
	return nil
}
