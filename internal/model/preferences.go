package model

import "time"

// MealPreferences keeps the user's preferred meal start times as minutes after midnight.
type MealPreferences struct {
	ID             uint `gorm:"primaryKey"`
	UserID         uint `gorm:"uniqueIndex"`
	BreakfastStart int
	LunchStart     int
	DinnerStart    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SchemaVersion records which routine catalog version a user's routines were seeded with.
type SchemaVersion struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"uniqueIndex"`
	// Version is zero when routines were never seeded under the versioned scheme.
	Version int
	// LegacySeeded is set for users seeded before versions were tracked.
	LegacySeeded bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Effective returns the catalog version the stored routines correspond to.
// A legacy seed without a version counts as version 1.
func (v SchemaVersion) Effective() int {
	if v.Version == 0 && v.LegacySeeded {
		return 1
	}
	return v.Version
}
