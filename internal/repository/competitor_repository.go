package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vipul43/scout-worker/internal/models"
	"gorm.io/gorm"
)

var ErrCompetitorNotFound = errors.New("competitor not found")

type CompetitorRepository struct {
	db *gorm.DB
}

func NewCompetitorRepository(db *gorm.DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

// ListAll retrieves every competitor. The registry cache flattens the result,
// so this runs at most once per cache TTL window.
func (r *CompetitorRepository) ListAll(ctx context.Context) ([]models.Competitor, error) {
	var competitors []models.Competitor
	result := r.db.WithContext(ctx).Find(&competitors)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", result.Error)
	}
	return competitors, nil
}

// GetByID retrieves a competitor by ID
func (r *CompetitorRepository) GetByID(ctx context.Context, competitorID string) (*models.Competitor, error) {
	var competitor models.Competitor
	result := r.db.WithContext(ctx).First(&competitor, "id = ?", competitorID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCompetitorNotFound
		}
		return nil, fmt.Errorf("failed to get competitor: %w", result.Error)
	}
	return &competitor, nil
}
