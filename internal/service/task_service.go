package service

import (
	"context"
	"strings"
	"time"

	"routine-planner/internal/model"
	"routine-planner/internal/repository"
	"routine-planner/internal/schedule"
)

// TaskInput represents data required to create a task. A nil DueAt creates a routine.
type TaskInput struct {
	Title       string
	Description string
	DueAt       *time.Time
	Range       *schedule.TimeRange
	ReminderAt  *time.Time
}

// TaskChanges lists the fields a user edit touches. Nil fields are left alone.
type TaskChanges struct {
	Title         *string
	Notes         *string
	Range         *schedule.TimeRange
	ClearRange    bool
	DueAt         *time.Time
	ReminderAt    *time.Time
	ClearReminder bool
}

// TaskService wraps user-initiated task operations. Store errors are returned
// to the caller; reminder failures are only logged.
type TaskService struct {
	tasks     TaskStore
	reminders Reminders
	loc       *time.Location
}

func NewTaskService(tasks TaskStore, reminders Reminders, loc *time.Location) *TaskService {
	return &TaskService{tasks: tasks, reminders: reminders, loc: loc}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	description := schedule.StripTimeMetadata(input.Description)
	if input.Range != nil {
		description = schedule.InjectTimeMetadata(description, *input.Range)
	} else if r, ok := schedule.ParseTimeRange(input.Description); ok {
		description = schedule.InjectTimeMetadata(description, r)
	}

	task := model.Task{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		DueAt:       input.DueAt,
		ReminderAt:  input.ReminderAt,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	task = localizeTask(task, user.Location(s.loc))
	syncReminder(s.reminders, *user, task)
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	local := localizeTask(*task, user.Location(s.loc))
	return &local, nil
}

// UpdateTask applies a user edit and resynchronizes the task's reminder.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID uint, changes TaskChanges) (*model.Task, error) {
	patch := repository.TaskPatch{
		DueAt:         changes.DueAt,
		ReminderAt:    changes.ReminderAt,
		ClearReminder: changes.ClearReminder,
	}
	if changes.Title != nil {
		title := strings.TrimSpace(*changes.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		patch.Title = &title
	}

	if changes.Notes != nil || changes.Range != nil || changes.ClearRange {
		current, err := s.tasks.FindByID(ctx, user.ID, taskID)
		if err != nil {
			return nil, err
		}
		notes := schedule.StripTimeMetadata(current.Description)
		if changes.Notes != nil {
			notes = schedule.StripTimeMetadata(*changes.Notes)
		}
		description := notes
		switch {
		case changes.Range != nil:
			description = schedule.InjectTimeMetadata(notes, *changes.Range)
		case !changes.ClearRange:
			if r, ok := schedule.ParseTimeRange(current.Description); ok {
				description = schedule.InjectTimeMetadata(notes, r)
			}
		}
		patch.Description = &description
	}

	task, err := s.tasks.Update(ctx, user.ID, taskID, patch)
	if err != nil {
		return nil, err
	}
	local := localizeTask(*task, user.Location(s.loc))
	syncReminder(s.reminders, *user, local)
	return &local, nil
}

// SetCompletion marks a task done or open again.
func (s *TaskService) SetCompletion(ctx context.Context, user *model.User, taskID uint, completed bool) (*model.Task, error) {
	task, err := s.tasks.SetCompletion(ctx, user.ID, taskID, completed)
	if err != nil {
		return nil, err
	}
	local := localizeTask(*task, user.Location(s.loc))
	syncReminder(s.reminders, *user, local)
	return &local, nil
}

// DeleteTask removes a task or routine. Its reminder is cancelled even when the
// store delete fails.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	err := s.tasks.Delete(ctx, user.ID, taskID)
	s.reminders.Cancel(taskID)
	return err
}

// ListForDay returns the raw records for day without reconciling routines.
func (s *TaskService) ListForDay(ctx context.Context, user *model.User, day time.Time) ([]model.Task, error) {
	loc := user.Location(s.loc)
	from, to := dayBounds(day, loc)
	tasks, err := s.tasks.ListForDay(ctx, user.ID, from, to)
	if err != nil {
		return nil, err
	}
	return localize(tasks, loc), nil
}
