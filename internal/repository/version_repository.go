package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"routine-planner/internal/model"
)

// VersionRepository stores which catalog version each user's routines follow.
type VersionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Load returns nil without error when the user has no version record.
func (r *VersionRepository) Load(ctx context.Context, userID uint) (*model.SchemaVersion, error) {
	var v model.SchemaVersion
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&v).Error
	switch {
	case err == nil:
		return &v, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("load schema version: %w", err)
	}
}

// Save stores version and legacy flag for the user.
func (r *VersionRepository) Save(ctx context.Context, userID uint, version int, legacy bool) error {
	existing, err := r.Load(ctx, userID)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if existing == nil {
		v := model.SchemaVersion{UserID: userID, Version: version, LegacySeeded: legacy}
		if err := db.Create(&v).Error; err != nil {
			return fmt.Errorf("create schema version: %w", err)
		}
		return nil
	}
	updates := map[string]interface{}{"version": version, "legacy_seeded": legacy}
	if err := db.Model(existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update schema version: %w", err)
	}
	return nil
}
