package service

import (
	"context"
	"errors"
	"time"

	"routine-planner/internal/model"
	"routine-planner/internal/repository"
)

var (
	// ErrTitleRequired is returned when a task is created without a title.
	ErrTitleRequired = errors.New("title is required")
	// ErrNotRoutine is returned when a routine-only operation targets a dated task.
	ErrNotRoutine = errors.New("task is not a routine")
)

// TaskStore persists tasks and routines. repository.TaskRepository implements it.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListForDay(ctx context.Context, userID uint, from, to time.Time) ([]model.Task, error)
	ListRoutines(ctx context.Context, userID uint) ([]model.Task, error)
	ListWithReminders(ctx context.Context, userID uint) ([]model.Task, error)
	FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error)
	Update(ctx context.Context, userID, taskID uint, patch repository.TaskPatch) (*model.Task, error)
	SetCompletion(ctx context.Context, userID, taskID uint, completed bool) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID uint) error
	CountOpen(ctx context.Context, userID uint, from, to time.Time) (int64, error)
}

// PreferenceStore persists meal preferences.
type PreferenceStore interface {
	Load(ctx context.Context, userID uint) (*model.MealPreferences, error)
	Save(ctx context.Context, userID uint, prefs model.MealPreferences) error
}

// VersionStore persists the routine catalog version per user.
type VersionStore interface {
	Load(ctx context.Context, userID uint) (*model.SchemaVersion, error)
	Save(ctx context.Context, userID uint, version int, legacy bool) error
}

// Reminders schedules notifications for tasks. Scheduling an entity again
// replaces its previous reminder.
type Reminders interface {
	Schedule(r Reminder) error
	Cancel(entityID uint)
	ScheduleDailySummary(recipient int64, activeTaskCount int) error
}

// Reminder describes one notification to deliver.
type Reminder struct {
	EntityID    uint
	Recipient   int64
	Title       string
	FireAt      time.Time
	RepeatDaily bool
}

// dayBounds returns [start, end) of the calendar day containing t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// localize converts stored UTC timestamps into loc.
func localize(tasks []model.Task, loc *time.Location) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = localizeTask(t, loc)
	}
	return out
}

func localizeTask(t model.Task, loc *time.Location) model.Task {
	if t.DueAt != nil {
		d := t.DueAt.In(loc)
		t.DueAt = &d
	}
	if t.ReminderAt != nil {
		r := t.ReminderAt.In(loc)
		t.ReminderAt = &r
	}
	if t.CompletedAt != nil {
		c := t.CompletedAt.In(loc)
		t.CompletedAt = &c
	}
	return t
}
