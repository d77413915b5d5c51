package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"routine-planner/internal/model"
	"routine-planner/internal/repository"
)

// Common test errors
var (
	ErrMockStore = errors.New("mock store error")
)

// MockTaskStore implements TaskStore in memory.
type MockTaskStore struct {
	mu     sync.Mutex
	nextID uint
	Tasks  map[uint]model.Task
	Calls  []string
	// FailOn makes the named operation fail for every task.
	FailOn map[string]error
	// FailTask makes writes to one task ID fail.
	FailTask map[uint]error
}

func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		nextID:   1,
		Tasks:    make(map[uint]model.Task),
		FailOn:   make(map[string]error),
		FailTask: make(map[uint]error),
	}
}

func (m *MockTaskStore) record(op string) error {
	m.Calls = append(m.Calls, op)
	return m.FailOn[op]
}

func (m *MockTaskStore) Create(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Create"); err != nil {
		return err
	}
	task.ID = m.nextID
	m.nextID++
	task.CreatedAt = time.Now()
	m.Tasks[task.ID] = *task
	return nil
}

func (m *MockTaskStore) ListForDay(_ context.Context, userID uint, from, to time.Time) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListForDay"); err != nil {
		return nil, err
	}
	return m.filter(func(t model.Task) bool {
		return t.UserID == userID && (t.DueAt == nil || (!t.DueAt.Before(from) && t.DueAt.Before(to)))
	}), nil
}

func (m *MockTaskStore) ListRoutines(_ context.Context, userID uint) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListRoutines"); err != nil {
		return nil, err
	}
	return m.filter(func(t model.Task) bool { return t.UserID == userID && t.DueAt == nil }), nil
}

func (m *MockTaskStore) ListWithReminders(_ context.Context, userID uint) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListWithReminders"); err != nil {
		return nil, err
	}
	return m.filter(func(t model.Task) bool { return t.UserID == userID && t.ReminderAt != nil }), nil
}

func (m *MockTaskStore) FindByID(_ context.Context, userID, taskID uint) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("FindByID"); err != nil {
		return nil, err
	}
	t, ok := m.Tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (m *MockTaskStore) Update(_ context.Context, userID, taskID uint, patch repository.TaskPatch) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Update"); err != nil {
		return nil, err
	}
	if err := m.FailTask[taskID]; err != nil {
		return nil, err
	}
	t, ok := m.Tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	switch {
	case patch.ClearDueAt:
		t.DueAt = nil
	case patch.DueAt != nil:
		d := patch.DueAt.UTC()
		t.DueAt = &d
	}
	switch {
	case patch.ClearReminder:
		t.ReminderAt = nil
	case patch.ReminderAt != nil:
		r := patch.ReminderAt.UTC()
		t.ReminderAt = &r
	}
	m.Tasks[taskID] = t
	return &t, nil
}

func (m *MockTaskStore) SetCompletion(_ context.Context, userID, taskID uint, completed bool) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetCompletion"); err != nil {
		return nil, err
	}
	t, ok := m.Tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	t.IsCompleted = completed
	t.CompletedAt = nil
	if completed {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	m.Tasks[taskID] = t
	return &t, nil
}

func (m *MockTaskStore) Delete(_ context.Context, userID, taskID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Delete"); err != nil {
		return err
	}
	if err := m.FailTask[taskID]; err != nil {
		return err
	}
	if t, ok := m.Tasks[taskID]; ok && t.UserID == userID {
		delete(m.Tasks, taskID)
	}
	return nil
}

func (m *MockTaskStore) CountOpen(_ context.Context, userID uint, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CountOpen"); err != nil {
		return 0, err
	}
	n := len(m.filter(func(t model.Task) bool {
		return t.UserID == userID && !t.IsCompleted && t.DueAt != nil && !t.DueAt.Before(from) && t.DueAt.Before(to)
	}))
	return int64(n), nil
}

// Put stores t as is, bypassing call recording.
func (m *MockTaskStore) Put(t model.Task) model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.nextID
	}
	if t.ID >= m.nextID {
		m.nextID = t.ID + 1
	}
	m.Tasks[t.ID] = t
	return t
}

// ByTitle returns the first stored task with title.
func (m *MockTaskStore) ByTitle(title string) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := m.filter(func(t model.Task) bool { return t.Title == title })
	if len(found) == 0 {
		return model.Task{}, false
	}
	return found[0], true
}

func (m *MockTaskStore) filter(keep func(model.Task) bool) []model.Task {
	var out []model.Task
	for _, t := range m.Tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockPreferenceStore implements PreferenceStore.
type MockPreferenceStore struct {
	Prefs   map[uint]model.MealPreferences
	LoadErr error
	SaveErr error
}

func NewMockPreferenceStore() *MockPreferenceStore {
	return &MockPreferenceStore{Prefs: make(map[uint]model.MealPreferences)}
}

func (m *MockPreferenceStore) Load(_ context.Context, userID uint) (*model.MealPreferences, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	p, ok := m.Prefs[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockPreferenceStore) Save(_ context.Context, userID uint, prefs model.MealPreferences) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	prefs.UserID = userID
	m.Prefs[userID] = prefs
	return nil
}

// MockVersionStore implements VersionStore.
type MockVersionStore struct {
	Versions map[uint]model.SchemaVersion
	LoadErr  error
	Saves    int
}

func NewMockVersionStore() *MockVersionStore {
	return &MockVersionStore{Versions: make(map[uint]model.SchemaVersion)}
}

func (m *MockVersionStore) Load(_ context.Context, userID uint) (*model.SchemaVersion, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	v, ok := m.Versions[userID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *MockVersionStore) Save(_ context.Context, userID uint, version int, legacy bool) error {
	m.Saves++
	m.Versions[userID] = model.SchemaVersion{UserID: userID, Version: version, LegacySeeded: legacy}
	return nil
}

// MockReminders implements Reminders and records what is scheduled.
type MockReminders struct {
	mu        sync.Mutex
	Active    map[uint]Reminder
	Cancelled []uint
	Summaries map[int64]int
	Calls     []string
	Err       error
}

func NewMockReminders() *MockReminders {
	return &MockReminders{
		Active:    make(map[uint]Reminder),
		Summaries: make(map[int64]int),
	}
}

func (m *MockReminders) Schedule(r Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "Schedule")
	if m.Err != nil {
		return m.Err
	}
	m.Active[r.EntityID] = r
	return nil
}

func (m *MockReminders) Cancel(entityID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "Cancel")
	m.Cancelled = append(m.Cancelled, entityID)
	delete(m.Active, entityID)
}

func (m *MockReminders) ScheduleDailySummary(recipient int64, activeTaskCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "ScheduleDailySummary")
	m.Summaries[recipient] = activeTaskCount
	return nil
}
