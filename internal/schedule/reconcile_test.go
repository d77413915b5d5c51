package schedule

import (
	"testing"
	"time"

	"routine-planner/internal/model"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// seededRoutines returns the nine routines as freshly seeded, IDs 1..9.
func seededRoutines(seeds []Seed) []model.Task {
	out := make([]model.Task, len(seeds))
	for i, s := range seeds {
		out[i] = NewRoutine(1, s, testDay)
		out[i].ID = uint(i + 1)
	}
	return out
}

func fixedTask(id uint, title string, r TimeRange) model.Task {
	due := testDay
	return model.Task{
		ID:          id,
		UserID:      1,
		Title:       title,
		Description: InjectTimeMetadata("", r),
		DueAt:       &due,
	}
}

func rangesByTitle(t *testing.T, tasks []model.Task) map[string]TimeRange {
	t.Helper()
	out := make(map[string]TimeRange)
	for _, task := range tasks {
		r, ok := ParseTimeRange(task.Description)
		if !ok {
			t.Fatalf("%s has no time range: %q", task.Title, task.Description)
		}
		out[task.Title] = r
	}
	return out
}

func TestReconcileSeedsOnly(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	out := Reconcile(seededRoutines(seeds), seeds)

	if len(out) != len(seeds) {
		t.Fatalf("expected %d entries, got %d", len(seeds), len(out))
	}
	for i, task := range out {
		if task.Title != seeds[i].Title {
			t.Errorf("position %d: got %s, want %s", i, task.Title, seeds[i].Title)
		}
		r, _ := ParseTimeRange(task.Description)
		if want, _ := seeds[i].Range(); r != want {
			t.Errorf("%s: got %s, want %s", task.Title, r, want)
		}
	}
}

func TestReconcileDisplacesBreakfast(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds), fixedTask(100, "Dentist", TimeRange{480, 525}))

	got := rangesByTitle(t, Reconcile(tasks, seeds))

	if got[TitleBreakfast] != (TimeRange{525, 585}) {
		t.Errorf("breakfast: got %s, want 08:45-09:45", got[TitleBreakfast])
	}
	if got[TitleMorningFocus] != (TimeRange{585, 780}) {
		t.Errorf("morning focus: got %s, want 09:45-13:00", got[TitleMorningFocus])
	}
	if got["Dentist"] != (TimeRange{480, 525}) {
		t.Errorf("fixed task moved: %s", got["Dentist"])
	}
}

func TestReconcileDropsCoveredFlexibleBlock(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds), fixedTask(100, "Workshop", TimeRange{540, 780}))

	out := Reconcile(tasks, seeds)
	got := rangesByTitle(t, out)

	if _, ok := got[TitleMorningFocus]; ok {
		t.Errorf("morning focus should be dropped, got %s", got[TitleMorningFocus])
	}
	if got[TitleBreakfast] != (TimeRange{480, 540}) {
		t.Errorf("adjacent breakfast should not move, got %s", got[TitleBreakfast])
	}
	if len(out) != len(seeds) {
		t.Errorf("expected 8 routines plus the workshop, got %d entries", len(out))
	}
}

func TestReconcileNoOverlap(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds),
		fixedTask(100, "Standup", TimeRange{480, 525}),
		fixedTask(101, "Client lunch", TimeRange{750, 840}),
		fixedTask(102, "Gym", TimeRange{1110, 1170}),
	)

	out := Reconcile(tasks, seeds)
	got := rangesByTitle(t, out)

	want := map[string]TimeRange{
		TitleEarlyFocus:     {420, 480},
		TitleBreakfast:      {525, 585},
		TitleMorningFocus:   {585, 750},
		TitleLunch:          {840, 900},
		TitleAfternoonFocus: {900, 1110},
		TitleDinner:         {1170, 1230},
		TitleEveningFocus:   {1230, 1350},
	}
	for title, w := range want {
		if got[title] != w {
			t.Errorf("%s: got %s, want %s", title, got[title], w)
		}
	}

	assertNoOverlap(t, out)
}

func assertNoOverlap(t *testing.T, out []model.Task) {
	t.Helper()
	for i := range out {
		a, aok := ParseTimeRange(out[i].Description)
		for j := i + 1; j < len(out); j++ {
			b, bok := ParseTimeRange(out[j].Description)
			if !aok || !bok {
				continue
			}
			if overlapsAny(a, addBlocker(nil, b)) || overlapsAny(b, addBlocker(nil, a)) {
				t.Errorf("%s %s overlaps %s %s", out[i].Title, a, out[j].Title, b)
			}
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds),
		fixedTask(100, "Standup", TimeRange{480, 525}),
		fixedTask(101, "Client lunch", TimeRange{750, 840}),
	)

	first := Reconcile(tasks, seeds)
	second := Reconcile(first, seeds)

	if len(first) != len(second) {
		t.Fatalf("entry count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Description != second[i].Description {
			t.Errorf("entry %d changed:\n%+v\n%+v", i, first[i], second[i])
		}
	}
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds), fixedTask(100, "Dentist", TimeRange{480, 525}))
	before := make([]string, len(tasks))
	for i, task := range tasks {
		before[i] = task.Description
	}

	Reconcile(tasks, seeds)

	for i, task := range tasks {
		if task.Description != before[i] {
			t.Errorf("input %s was modified", task.Title)
		}
	}
}

func TestReconcileKeepsDinnerOutOfSleep(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds), fixedTask(100, "Concert", TimeRange{1140, 1320}))

	out := Reconcile(tasks, seeds)
	got := rangesByTitle(t, out)

	if got[TitleDinner] != (TimeRange{1320, 1350}) {
		t.Errorf("dinner: got %s, want 22:00-22:30", got[TitleDinner])
	}
	if got[TitleSleep] != (TimeRange{1350, 1830}) {
		t.Errorf("sleep moved: %s", got[TitleSleep])
	}
	if _, ok := got[TitleEveningFocus]; ok {
		t.Errorf("evening focus should be dropped, got %s", got[TitleEveningFocus])
	}
	assertNoOverlap(t, out)
}

func TestReconcileDropsMealWithoutRoomBeforeSleep(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds), fixedTask(100, "Late shift", TimeRange{1140, 1350}))

	out := Reconcile(tasks, seeds)
	got := rangesByTitle(t, out)

	if _, ok := got[TitleDinner]; ok {
		t.Errorf("dinner should be dropped, got %s", got[TitleDinner])
	}
	assertNoOverlap(t, out)
}

func TestReconcileClampsMealAtMidnight(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	// Without a sleep routine dinner may run until midnight.
	tasks := append(seededRoutines(seeds)[:8], fixedTask(100, "Night shift", TimeRange{1140, 1410}))

	got := rangesByTitle(t, Reconcile(tasks, seeds))

	if got[TitleDinner] != (TimeRange{1410, 1440}) {
		t.Errorf("dinner: got %+v, want 23:30-24:00", got[TitleDinner])
	}
}

func TestReconcileMealSkipsWake(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := seededRoutines(seeds)
	tasks[2].Description = InjectTimeMetadata(seeds[2].Summary, TimeRange{360, 420})

	out := Reconcile(tasks, seeds)
	got := rangesByTitle(t, out)

	if got[TitleBreakfast] != (TimeRange{420, 480}) {
		t.Errorf("breakfast: got %s, want 07:00-08:00", got[TitleBreakfast])
	}
	assertNoOverlap(t, out)
}

func TestReconcilePicksLargestGap(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := seededRoutines(seeds)
	tasks[3].Description = InjectTimeMetadata(seeds[3].Summary, TimeRange{540, 840})
	tasks[4].Description = InjectTimeMetadata(seeds[4].Summary, TimeRange{840, 900})
	tasks = append(tasks,
		fixedTask(100, "Review", TimeRange{540, 600}),
		fixedTask(101, "Call", TimeRange{720, 750}),
	)

	out := Reconcile(tasks, seeds)
	got := rangesByTitle(t, out)

	if got[TitleMorningFocus] != (TimeRange{600, 720}) {
		t.Errorf("morning focus: got %s, want 10:00-12:00", got[TitleMorningFocus])
	}
	assertNoOverlap(t, out)
}

func TestReconcileFiltersUnknownRoutines(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := append(seededRoutines(seeds),
		model.Task{ID: 50, Title: "Snack", Description: "@time 10:00-10:15"},
		model.Task{ID: 51, Title: "Feed the cat"},
	)

	for _, task := range Reconcile(tasks, seeds) {
		if task.ID == 50 || task.ID == 51 {
			t.Errorf("%s should be filtered out", task.Title)
		}
	}
}

func TestReconcileUsesPersistedRange(t *testing.T) {
	seeds := BuildRoutineSeeds(DefaultMealPreferences())
	tasks := seededRoutines(seeds)
	tasks[2].Description = InjectTimeMetadata(seeds[2].Summary, TimeRange{510, 570})

	got := rangesByTitle(t, Reconcile(tasks, seeds))

	if got[TitleBreakfast] != (TimeRange{510, 570}) {
		t.Errorf("custom breakfast: got %s", got[TitleBreakfast])
	}
	if got[TitleMorningFocus] != (TimeRange{570, 780}) {
		t.Errorf("morning focus should start after custom breakfast, got %s", got[TitleMorningFocus])
	}
	if got[TitleEarlyFocus] != (TimeRange{420, 480}) {
		t.Errorf("early focus: got %s", got[TitleEarlyFocus])
	}
}

func TestLargestFreeGap(t *testing.T) {
	tests := []struct {
		name     string
		window   TimeRange
		blockers []TimeRange
		want     TimeRange
		ok       bool
	}{
		{
			name:     "middle gap wins",
			window:   TimeRange{540, 840},
			blockers: []TimeRange{{540, 600}, {720, 750}},
			want:     TimeRange{600, 720},
			ok:       true,
		},
		{
			name:     "tail gap",
			window:   TimeRange{540, 840},
			blockers: []TimeRange{{500, 560}},
			want:     TimeRange{560, 840},
			ok:       true,
		},
		{
			name:     "no blockers",
			window:   TimeRange{540, 600},
			want:     TimeRange{540, 600},
			ok:       true,
		},
		{
			name:     "tie goes to earliest",
			window:   TimeRange{0, 100},
			blockers: []TimeRange{{30, 70}},
			want:     TimeRange{0, 30},
			ok:       true,
		},
		{
			name:     "adjacent blockers merge",
			window:   TimeRange{0, 100},
			blockers: []TimeRange{{50, 60}, {10, 50}, {60, 95}},
			want:     TimeRange{0, 10},
			ok:       true,
		},
		{
			name:     "fully covered",
			window:   TimeRange{540, 600},
			blockers: []TimeRange{{500, 560}, {550, 700}},
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LargestFreeGap(tt.window, tt.blockers)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSortEntries(t *testing.T) {
	older := testDay.Add(-time.Hour)
	newer := testDay

	doneTask := fixedTask(1, "Done early", TimeRange{300, 330})
	doneTask.IsCompleted = true
	untimed := model.Task{ID: 2, Title: "Call bank", DueAt: &testDay}
	lunch := model.Task{ID: 3, Title: TitleLunch, Description: "@time 12:00-13:00", CreatedAt: older}
	sameStart := model.Task{ID: 4, Title: TitleAfternoonFocus, Description: "@time 12:00-14:00", CreatedAt: newer}
	fixedSame := fixedTask(5, "Errand", TimeRange{720, 750})
	fixedSame.CreatedAt = newer
	early := fixedTask(6, "Run", TimeRange{360, 400})

	entries := []model.Task{doneTask, untimed, sameStart, fixedSame, lunch, early}
	SortEntries(entries)

	want := []uint{6, 3, 4, 5, 2, 1}
	for i, id := range want {
		if entries[i].ID != id {
			got := make([]uint, len(entries))
			for j, e := range entries {
				got[j] = e.ID
			}
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortEntriesCreatedAtBreaksTies(t *testing.T) {
	a := fixedTask(1, "A", TimeRange{600, 660})
	a.CreatedAt = testDay.Add(-time.Hour)
	b := fixedTask(2, "B", TimeRange{600, 630})
	b.CreatedAt = testDay

	entries := []model.Task{a, b}
	SortEntries(entries)
	if entries[0].ID != 2 {
		t.Errorf("expected newest first, got %d", entries[0].ID)
	}
}

func TestSortEntriesSameStartUsesCatalogOrder(t *testing.T) {
	dinner := model.Task{ID: 7, Title: TitleDinner, Description: "@time 19:00-20:00", CreatedAt: testDay.Add(-48 * time.Hour)}
	evening := model.Task{ID: 8, Title: TitleEveningFocus, Description: "@time 19:00-22:30", CreatedAt: testDay}

	entries := []model.Task{evening, dinner}
	SortEntries(entries)

	if entries[0].ID != 7 || entries[1].ID != 8 {
		t.Errorf("expected dinner before evening focus, got %d, %d", entries[0].ID, entries[1].ID)
	}
}
