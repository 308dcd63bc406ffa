package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/vipul43/scout-worker/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// keep every query on the single in-memory connection
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.SyncState{}); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	return db
}

func TestGetOrCreate_ReturnsExistingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)

	seeded := models.SyncState{ID: "state-1", Email: "inbox@example.com", OrgID: "org-1"}
	if err := db.Create(&seeded).Error; err != nil {
		t.Fatalf("failed to seed sync state: %v", err)
	}

	state, err := repo.GetOrCreate(context.Background(), "inbox@example.com", "org-1")
	if err != nil {
		t.Fatalf("expected existing row, got %v", err)
	}
	if state.ID != "state-1" {
		t.Errorf("expected seeded row state-1, got %s", state.ID)
	}

	var count int64
	if err := db.Model(&models.SyncState{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count sync states: %v", err)
	}
	if count != 1 {
		t.Errorf("expected no second row for the same mailbox, got %d rows", count)
	}
}

func TestGetOrCreate_CreatesMissingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)

	state, err := repo.GetOrCreate(context.Background(), "new@example.com", "org-2")
	if err != nil {
		t.Fatalf("expected row created, got %v", err)
	}
	if state.ID == "" {
		t.Fatal("expected generated id on created row")
	}
	if _, err := uuid.Parse(state.ID); err != nil {
		t.Errorf("expected uuid id, got %q", state.ID)
	}
	if state.Email != "new@example.com" || state.OrgID != "org-2" {
		t.Errorf("unexpected created row: %+v", state)
	}

	again, err := repo.GetOrCreate(context.Background(), "new@example.com", "org-2")
	if err != nil {
		t.Fatalf("expected second call to find the row, got %v", err)
	}
	if again.ID != state.ID {
		t.Errorf("expected same row on repeat call, got %s and %s", state.ID, again.ID)
	}
}

func TestTouch_SetsLastSyncAt(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)

	state, err := repo.GetOrCreate(context.Background(), "inbox@example.com", "org-1")
	if err != nil {
		t.Fatalf("expected row created, got %v", err)
	}
	if state.LastSyncAt != nil {
		t.Fatalf("expected fresh row with no last_sync_at, got %v", state.LastSyncAt)
	}

	if err := repo.Touch(context.Background(), state.ID); err != nil {
		t.Fatalf("expected touch to succeed, got %v", err)
	}

	var reloaded models.SyncState
	if err := db.First(&reloaded, "id = ?", state.ID).Error; err != nil {
		t.Fatalf("failed to reload sync state: %v", err)
	}
	if reloaded.LastSyncAt == nil {
		t.Error("expected last_sync_at set after touch")
	}
}
