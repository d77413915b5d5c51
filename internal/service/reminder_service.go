package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"routine-planner/internal/model"
)

// Notifier delivers a text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// ReminderService turns task reminders into cron jobs that message the user.
type ReminderService struct {
	scheduler   *SchedulerService
	notifier    Notifier
	summaryTime string
	now         func() time.Time

	mu        sync.Mutex
	entries   map[uint]cron.EntryID
	summaries map[int64]cron.EntryID
}

// NewReminderService creates a reminder service. summaryTime is the HH:MM at
// which the daily summary goes out.
func NewReminderService(scheduler *SchedulerService, notifier Notifier, summaryTime string) *ReminderService {
	return &ReminderService{
		scheduler:   scheduler,
		notifier:    notifier,
		summaryTime: summaryTime,
		now:         time.Now,
		entries:     make(map[uint]cron.EntryID),
		summaries:   make(map[int64]cron.EntryID),
	}
}

// Schedule replaces any reminder for r.EntityID. One-off reminders in the past are dropped.
// Replacing holds the lock until the new entry is recorded, so concurrent calls
// for one entity leave exactly one cron entry.
func (s *ReminderService) Schedule(r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(r.EntityID)

	job := s.deliver(r.Recipient, "⏰ "+r.Title)
	var id cron.EntryID
	if r.RepeatDaily {
		var err error
		id, err = s.scheduler.ScheduleDailyAt(r.FireAt, job)
		if err != nil {
			return fmt.Errorf("schedule reminder %d: %w", r.EntityID, err)
		}
	} else {
		if !r.FireAt.After(s.now()) {
			return nil
		}
		id = s.scheduler.ScheduleOnce(r.FireAt, job)
	}
	s.entries[r.EntityID] = id
	return nil
}

func (s *ReminderService) Cancel(entityID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(entityID)
}

func (s *ReminderService) cancelLocked(entityID uint) {
	if id, ok := s.entries[entityID]; ok {
		delete(s.entries, entityID)
		s.scheduler.Remove(id)
	}
}

// ScheduleDailySummary keeps one standing summary notification per recipient.
func (s *ReminderService) ScheduleDailySummary(recipient int64, activeTaskCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.summaries[recipient]; ok {
		delete(s.summaries, recipient)
		s.scheduler.Remove(prev)
	}

	id, err := s.scheduler.ScheduleDaily(s.summaryTime, s.deliver(recipient, summaryText(activeTaskCount)))
	if err != nil {
		return fmt.Errorf("schedule summary: %w", err)
	}
	s.summaries[recipient] = id
	return nil
}

// Scheduled reports whether entityID currently has a reminder.
func (s *ReminderService) Scheduled(entityID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[entityID]
	return ok
}

func (s *ReminderService) deliver(chatID int64, text string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, chatID, text); err != nil {
			log.Printf("[warn] deliver reminder to %d: %v", chatID, err)
		}
	}
}

func summaryText(count int) string {
	switch count {
	case 0:
		return "📋 Nothing due today. Your routines are waiting in /today."
	case 1:
		return "📋 You have 1 open task today. See /today."
	default:
		return fmt.Sprintf("📋 You have %d open tasks today. See /today.", count)
	}
}

// syncReminder schedules or cancels the reminder of one task. Failures are logged.
func syncReminder(r Reminders, user model.User, task model.Task) {
	if task.ReminderAt == nil || (task.IsCompleted && !task.IsRoutine()) {
		r.Cancel(task.ID)
		return
	}
	err := r.Schedule(Reminder{
		EntityID:    task.ID,
		Recipient:   user.TelegramID,
		Title:       task.Title,
		FireAt:      *task.ReminderAt,
		RepeatDaily: task.IsRoutine(),
	})
	if err != nil {
		log.Printf("[warn] reminder for task=%d user=%d: %v", task.ID, user.ID, err)
	}
}
