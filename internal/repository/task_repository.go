package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"routine-planner/internal/model"
)

// TaskPatch lists the task fields an update touches. Nil fields are left alone.
type TaskPatch struct {
	Title         *string
	Description   *string
	DueAt         *time.Time
	ClearDueAt    bool
	ReminderAt    *time.Time
	ClearReminder bool
}

func (p TaskPatch) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	switch {
	case p.ClearDueAt:
		cols["due_at"] = nil
	case p.DueAt != nil:
		cols["due_at"] = p.DueAt.UTC()
	}
	switch {
	case p.ClearReminder:
		cols["reminder_at"] = nil
	case p.ReminderAt != nil:
		cols["reminder_at"] = p.ReminderAt.UTC()
	}
	return cols
}

// TaskRepository handles CRUD for tasks and routines.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores task. Timestamps are written in UTC so SQLite compares them correctly.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.DueAt = utc(task.DueAt)
	task.ReminderAt = utc(task.ReminderAt)
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListForDay returns the tasks due in [from, to) together with every routine.
func (r *TaskRepository) ListForDay(ctx context.Context, userID uint, from, to time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND (due_at IS NULL OR (due_at >= ? AND due_at < ?))", userID, from.UTC(), to.UTC()).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListRoutines returns every task without a due date.
func (r *TaskRepository) ListRoutines(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND due_at IS NULL", userID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	return tasks, nil
}

// ListWithReminders returns every task and routine of the user that has a reminder.
func (r *TaskRepository) ListWithReminders(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND reminder_at IS NOT NULL", userID).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies patch and returns the stored task.
func (r *TaskRepository) Update(ctx context.Context, userID, taskID uint, patch TaskPatch) (*model.Task, error) {
	task, err := r.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	cols := patch.columns()
	if len(cols) == 0 {
		return task, nil
	}
	if err := r.db.WithContext(ctx).Model(task).Updates(cols).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return r.FindByID(ctx, userID, taskID)
}

func (r *TaskRepository) SetCompletion(ctx context.Context, userID, taskID uint, completed bool) (*model.Task, error) {
	task, err := r.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}
	updates := map[string]interface{}{"is_completed": completed, "completed_at": completedAt}
	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("set completion: %w", err)
	}
	task.IsCompleted = completed
	task.CompletedAt = completedAt
	return task, nil
}

// Delete removes a task for the given user, regardless of it being a routine or not.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CountOpen returns how many incomplete tasks are due in [from, to).
func (r *TaskRepository) CountOpen(ctx context.Context, userID uint, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND is_completed = ? AND due_at >= ? AND due_at < ?", userID, false, from.UTC(), to.UTC()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
