package schedule

import (
	"time"

	"routine-planner/internal/model"
)

// MigrationPlan lists the store writes that bring a user's routines up to
// CatalogVersion.
type MigrationPlan struct {
	From    int
	To      int
	Upgrade bool
	Create  []Seed
	Update  []RoutineUpdate
	Delete  []model.Task
}

// NeedsMigration reports whether the stored version lags the catalog.
func NeedsMigration(v *model.SchemaVersion) bool {
	if v == nil {
		return true
	}
	return v.LegacySeeded || v.Effective() != CatalogVersion
}

// PlanMigration compares the stored version with CatalogVersion and decides
// which routines to create, repair or delete. Routines whose time window no
// longer matches their seed are treated as customized: their notes and
// window are kept and only their reminder follows their own start.
func PlanMigration(v *model.SchemaVersion, routines []model.Task, seeds []Seed, now time.Time) MigrationPlan {
	plan := MigrationPlan{To: CatalogVersion}
	if v != nil {
		plan.From = v.Effective()
	}
	if !NeedsMigration(v) {
		return plan
	}
	plan.Upgrade = plan.From > 0

	byTitle := make(map[string]model.Task)
	for _, t := range routines {
		if !t.IsRoutine() {
			continue
		}
		if _, seen := byTitle[t.Title]; !seen {
			byTitle[t.Title] = t
		}
		if !IsCatalogTitle(t.Title) && IsLegacyTitle(t.Title) {
			plan.Delete = append(plan.Delete, t)
		}
	}

	for _, seed := range seeds {
		t, ok := byTitle[seed.Title]
		if !ok {
			plan.Create = append(plan.Create, seed)
			continue
		}
		if !plan.Upgrade {
			continue
		}
		if u, changed := repairRoutine(t, seed); changed {
			plan.Update = append(plan.Update, u)
		}
	}
	return plan
}

// PlanReseed moves routines that still sit on their previous seed window to
// the window of the next seeds, for instance after meal times changed.
func PlanReseed(routines []model.Task, previous, next []Seed) []RoutineUpdate {
	var updates []RoutineUpdate
	for _, t := range routines {
		if !t.IsRoutine() {
			continue
		}
		prev, ok := SeedByTitle(previous, t.Title)
		if !ok {
			continue
		}
		nextSeed, ok := SeedByTitle(next, t.Title)
		if !ok {
			continue
		}
		nr, ok := nextSeed.Range()
		if !ok {
			continue
		}
		if cur, ok := ParseTimeRange(t.Description); ok {
			pr, hasPrev := prev.Range()
			if !hasPrev || cur != pr {
				continue
			}
		}
		if u, changed := rangeUpdate(t, nr); changed {
			updates = append(updates, u)
		}
	}
	return updates
}

// NewRoutine builds the record for a freshly seeded routine.
func NewRoutine(userID uint, seed Seed, now time.Time) model.Task {
	t := model.Task{
		UserID:      userID,
		Title:       seed.Title,
		Description: seed.Description(),
	}
	if minute, ok := seed.ReminderMinute(); ok {
		at := AtMinute(now, minute)
		t.ReminderAt = &at
	}
	return t
}

func repairRoutine(t model.Task, seed Seed) (RoutineUpdate, bool) {
	seedRange, hasSeedRange := seed.Range()
	cur, hasCur := ParseTimeRange(t.Description)
	customized := hasCur && (!hasSeedRange || cur != seedRange)

	u := RoutineUpdate{TaskID: t.ID, Title: t.Title, Description: t.Description, ReminderAt: t.ReminderAt}
	effective, hasEffective := cur, hasCur
	if !customized {
		u.Description = seed.Description()
		effective, hasEffective = seedRange, hasSeedRange
	}
	if hasEffective {
		u.Range = effective
	}

	if seed.Reminder && hasEffective && t.ReminderAt != nil && MinuteOfDay(*t.ReminderAt) != effective.Start {
		moved := AtMinute(*t.ReminderAt, effective.Start)
		u.ReminderAt, u.ReminderMoved = &moved, true
	}
	return u, u.Description != t.Description || u.ReminderMoved
}
