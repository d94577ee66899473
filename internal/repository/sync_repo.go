package repository

import (
	"context"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncStateRepository persists the idempotency records the push contract is
// keyed on. Pull deltas are computed from per-entity updated_at watermarks
// (see the UpdatedSince methods on the entity repositories); no separate
// event log is kept, so two updates inside one clock tick are
// indistinguishable to a late-joining client.
type SyncStateRepository interface {
	// FindApplication returns the prior application for a client id, or
	// gorm.ErrRecordNotFound on first sight.
	FindApplication(ctx context.Context, entityType string, clientID uuid.UUID) (*model.SyncApplication, error)
	RecordApplication(ctx context.Context, app *model.SyncApplication) error
}

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) FindApplication(ctx context.Context, entityType string, clientID uuid.UUID) (*model.SyncApplication, error) {
	var app model.SyncApplication
	err := GetDB(ctx, r.db).
		Where("entity_type = ? AND client_id = ?", entityType, clientID).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *syncStateRepository) RecordApplication(ctx context.Context, app *model.SyncApplication) error {
	return GetDB(ctx, r.db).Create(app).Error
}
