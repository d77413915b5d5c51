package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"routine-planner/internal/model"
	"routine-planner/internal/repository"
	"routine-planner/internal/schedule"
)

// Entry is one line of a reconciled day.
type Entry struct {
	Task     model.Task
	Notes    string
	Range    schedule.TimeRange
	HasRange bool
	Routine  bool
	Kind     schedule.Kind
}

// Schedule is the reconciled view of one day.
type Schedule struct {
	Day     time.Time
	Entries []Entry
}

// OpenCount returns how many entries are not completed.
func (s Schedule) OpenCount() int {
	n := 0
	for _, e := range s.Entries {
		if !e.Task.IsCompleted {
			n++
		}
	}
	return n
}

// RoutineService seeds, migrates and reconciles the user's daily routines.
type RoutineService struct {
	tasks     TaskStore
	prefs     PreferenceStore
	versions  VersionStore
	reminders Reminders
	loc       *time.Location
	now       func() time.Time
}

func NewRoutineService(tasks TaskStore, prefs PreferenceStore, versions VersionStore, reminders Reminders, loc *time.Location) *RoutineService {
	return &RoutineService{
		tasks:     tasks,
		prefs:     prefs,
		versions:  versions,
		reminders: reminders,
		loc:       loc,
		now:       time.Now,
	}
}

// Seeds returns the catalog seeds for the user's meal preferences. When the
// preferences cannot be read the default seeds come back with the error.
func (s *RoutineService) Seeds(ctx context.Context, user *model.User) ([]schedule.Seed, error) {
	prefs, err := s.MealPreferences(ctx, user)
	return schedule.BuildRoutineSeeds(prefs), err
}

// MealPreferences returns the user's clamped meal times, or the defaults.
func (s *RoutineService) MealPreferences(ctx context.Context, user *model.User) (model.MealPreferences, error) {
	prefs, err := s.prefs.Load(ctx, user.ID)
	if err != nil {
		return schedule.DefaultMealPreferences(), err
	}
	if prefs == nil {
		return schedule.DefaultMealPreferences(), nil
	}
	return schedule.ClampMealPreferences(*prefs), nil
}

// Refresh runs seed/migrate, reminder sync and reconciliation for day, in
// that order. Only a failure to read the day's tasks is returned.
func (s *RoutineService) Refresh(ctx context.Context, user *model.User, day time.Time) (Schedule, error) {
	if err := s.EnsureRoutines(ctx, user); err != nil {
		log.Printf("[warn] ensure routines user=%d: %v", user.ID, err)
	}
	if err := s.SyncReminders(ctx, user); err != nil {
		log.Printf("[warn] sync reminders user=%d: %v", user.ID, err)
	}

	seeds, err := s.Seeds(ctx, user)
	if err != nil {
		log.Printf("[warn] load meal preferences user=%d: %v", user.ID, err)
	}

	loc := user.Location(s.loc)
	from, to := dayBounds(day, loc)
	tasks, err := s.tasks.ListForDay(ctx, user.ID, from, to)
	if err != nil {
		return Schedule{}, fmt.Errorf("load day: %w", err)
	}

	local := localize(tasks, loc)
	for i := range local {
		local[i].IsCompleted = local[i].DoneOn(from)
	}
	reconciled := schedule.Reconcile(local, seeds)
	return Schedule{Day: from, Entries: buildEntries(reconciled)}, nil
}

// EnsureRoutines creates, repairs and removes routines when the stored catalog
// version is behind. Individual store failures are logged and skipped.
func (s *RoutineService) EnsureRoutines(ctx context.Context, user *model.User) error {
	version, err := s.versions.Load(ctx, user.ID)
	if err != nil {
		return err
	}
	if !schedule.NeedsMigration(version) {
		return nil
	}

	seeds, err := s.Seeds(ctx, user)
	if err != nil {
		log.Printf("[warn] load meal preferences user=%d: %v", user.ID, err)
	}
	routines, err := s.tasks.ListRoutines(ctx, user.ID)
	if err != nil {
		return err
	}

	loc := user.Location(s.loc)
	now := s.now().In(loc)
	plan := schedule.PlanMigration(version, localize(routines, loc), seeds, now)
	log.Printf("[info] migrate routines user=%d from=%d to=%d create=%d update=%d delete=%d",
		user.ID, plan.From, plan.To, len(plan.Create), len(plan.Update), len(plan.Delete))

	for _, t := range plan.Delete {
		if err := s.tasks.Delete(ctx, user.ID, t.ID); err != nil {
			log.Printf("[warn] delete legacy routine %q user=%d: %v", t.Title, user.ID, err)
			continue
		}
		s.reminders.Cancel(t.ID)
	}
	for _, seed := range plan.Create {
		task := schedule.NewRoutine(user.ID, seed, now)
		if err := s.tasks.Create(ctx, &task); err != nil {
			log.Printf("[warn] seed routine %q user=%d: %v", seed.Title, user.ID, err)
		}
	}
	for _, u := range plan.Update {
		if _, err := s.applyUpdate(ctx, user, u); err != nil {
			log.Printf("[warn] repair routine %q user=%d: %v", u.Title, user.ID, err)
		}
	}

	if err := s.versions.Save(ctx, user.ID, schedule.CatalogVersion, false); err != nil {
		return err
	}
	return nil
}

// SyncReminders reschedules every stored reminder and the daily summary.
func (s *RoutineService) SyncReminders(ctx context.Context, user *model.User) error {
	loc := user.Location(s.loc)
	tasks, err := s.tasks.ListWithReminders(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, t := range localize(tasks, loc) {
		syncReminder(s.reminders, *user, t)
	}

	from, to := dayBounds(s.now(), loc)
	open, err := s.tasks.CountOpen(ctx, user.ID, from, to)
	if err != nil {
		return err
	}
	return s.reminders.ScheduleDailySummary(user.TelegramID, int(open))
}

// UpdateRoutineTime stores a new window for a routine and reflows the flexible
// routines up to the next anchor. Writes happen one at a time; the first
// failure is returned.
func (s *RoutineService) UpdateRoutineTime(ctx context.Context, user *model.User, taskID uint, r schedule.TimeRange) ([]model.Task, error) {
	loc := user.Location(s.loc)
	current, err := s.tasks.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	edited := localizeTask(*current, loc)
	if !edited.IsRoutine() {
		return nil, ErrNotRoutine
	}

	seeds, err := s.Seeds(ctx, user)
	if err != nil {
		log.Printf("[warn] load meal preferences user=%d: %v", user.ID, err)
	}
	routines, err := s.tasks.ListRoutines(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	r = schedule.NormalizeRange(r)
	own := schedule.RoutineUpdate{
		TaskID:      edited.ID,
		Title:       edited.Title,
		Range:       r,
		Description: schedule.InjectTimeMetadata(edited.Description, r),
		ReminderAt:  edited.ReminderAt,
	}
	if old, ok := schedule.ParseTimeRange(edited.Description); ok {
		own.ReminderAt, own.ReminderMoved = schedule.RealignReminder(edited.ReminderAt, old.Start, r.Start)
	}

	updates := append([]schedule.RoutineUpdate{own}, schedule.Redistribute(edited, r, localize(routines, loc), seeds)...)
	var changed []model.Task
	for _, u := range updates {
		task, err := s.applyUpdate(ctx, user, u)
		if err != nil {
			return changed, err
		}
		changed = append(changed, *task)
	}
	log.Printf("[info] routine time edit user=%d task=%d range=%s cascaded=%d", user.ID, taskID, r, len(updates)-1)
	return changed, nil
}

// SetMealPreferences clamps and stores meal times, then moves routines that
// still follow the old seeds onto the new ones.
func (s *RoutineService) SetMealPreferences(ctx context.Context, user *model.User, prefs model.MealPreferences) (model.MealPreferences, error) {
	previous, err := s.Seeds(ctx, user)
	if err != nil {
		return model.MealPreferences{}, err
	}
	clamped := schedule.ClampMealPreferences(prefs)
	if err := s.prefs.Save(ctx, user.ID, clamped); err != nil {
		return model.MealPreferences{}, err
	}

	routines, err := s.tasks.ListRoutines(ctx, user.ID)
	if err != nil {
		return clamped, err
	}
	next := schedule.BuildRoutineSeeds(clamped)
	var errs []error
	for _, u := range schedule.PlanReseed(localize(routines, user.Location(s.loc)), previous, next) {
		if _, err := s.applyUpdate(ctx, user, u); err != nil {
			errs = append(errs, fmt.Errorf("reseed %q: %w", u.Title, err))
		}
	}
	return clamped, errors.Join(errs...)
}

func (s *RoutineService) applyUpdate(ctx context.Context, user *model.User, u schedule.RoutineUpdate) (*model.Task, error) {
	patch := repository.TaskPatch{Description: &u.Description}
	if u.ReminderMoved {
		patch.ReminderAt = u.ReminderAt
	}
	task, err := s.tasks.Update(ctx, user.ID, u.TaskID, patch)
	if err != nil {
		return nil, err
	}
	local := localizeTask(*task, user.Location(s.loc))
	if u.ReminderMoved {
		syncReminder(s.reminders, *user, local)
	}
	return &local, nil
}

func buildEntries(tasks []model.Task) []Entry {
	entries := make([]Entry, 0, len(tasks))
	for _, t := range tasks {
		e := Entry{Task: t, Notes: schedule.StripTimeMetadata(t.Description), Routine: t.IsRoutine()}
		e.Range, e.HasRange = schedule.ParseTimeRange(t.Description)
		if e.Routine {
			e.Kind, _ = schedule.KindOf(t.Title)
		}
		entries = append(entries, e)
	}
	return entries
}
