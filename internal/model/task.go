package model

import "time"

// Task represents a single item in the planner. A task without a due date is a
// daily routine.
type Task struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint `gorm:"index"`
	Title       string
	Description string
	DueAt       *time.Time `gorm:"index"`
	ReminderAt  *time.Time
	IsCompleted bool `gorm:"default:false"`
	// CompletedAt is when the task was last marked done.
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsRoutine reports whether the task recurs daily.
func (t Task) IsRoutine() bool {
	return t.DueAt == nil
}

// DoneOn reports whether the task counts as completed on the calendar day of
// day. A routine is only done on the day it was last completed.
func (t Task) DoneOn(day time.Time) bool {
	if !t.IsCompleted {
		return false
	}
	if !t.IsRoutine() {
		return true
	}
	if t.CompletedAt == nil {
		return false
	}
	cy, cm, cd := t.CompletedAt.In(day.Location()).Date()
	y, m, d := day.Date()
	return cy == y && cm == m && cd == d
}
