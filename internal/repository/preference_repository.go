package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"routine-planner/internal/model"
)

// PreferenceRepository stores meal preferences, one row per user.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Load returns nil without error when the user never saved preferences.
func (r *PreferenceRepository) Load(ctx context.Context, userID uint) (*model.MealPreferences, error) {
	var prefs model.MealPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	switch {
	case err == nil:
		return &prefs, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("load preferences: %w", err)
	}
}

// Save inserts or replaces the user's preferences.
func (r *PreferenceRepository) Save(ctx context.Context, userID uint, prefs model.MealPreferences) error {
	existing, err := r.Load(ctx, userID)
	if err != nil {
		return err
	}
	prefs.UserID = userID
	db := r.db.WithContext(ctx)
	if existing == nil {
		prefs.ID = 0
		if err := db.Create(&prefs).Error; err != nil {
			return fmt.Errorf("create preferences: %w", err)
		}
		return nil
	}
	updates := map[string]interface{}{
		"breakfast_start": prefs.BreakfastStart,
		"lunch_start":     prefs.LunchStart,
		"dinner_start":    prefs.DinnerStart,
	}
	if err := db.Model(existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return nil
}
