package schedule

import (
	"time"

	"routine-planner/internal/model"
)

// MinCascadeMinutes is the smallest window a redistributed routine keeps.
const MinCascadeMinutes = 2

// RoutineUpdate is a rewrite of one routine's time window.
type RoutineUpdate struct {
	TaskID      uint
	Title       string
	Range       TimeRange
	Description string
	// ReminderAt is the new reminder when ReminderMoved is set.
	ReminderAt    *time.Time
	ReminderMoved bool
}

// Redistribute reflows the flexible routines between an edited routine and the
// next meal or sleep anchor after the edited routine moved to newRange. Each
// target keeps at most its current duration; the last one ends exactly at the
// anchor. It returns nil when there is nothing to reflow or the gap cannot
// hold every target.
func Redistribute(edited model.Task, newRange TimeRange, routines []model.Task, seeds []Seed) []RoutineUpdate {
	return redistribute(catalog, edited, newRange, routines, seeds)
}

func redistribute(order []catalogEntry, edited model.Task, newRange TimeRange, routines []model.Task, seeds []Seed) []RoutineUpdate {
	pos := -1
	for i, e := range order {
		if e.title == edited.Title {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}

	byTitle := make(map[string]model.Task)
	for _, t := range routines {
		if !t.IsRoutine() || t.ID == edited.ID {
			continue
		}
		if _, seen := byTitle[t.Title]; !seen {
			byTitle[t.Title] = t
		}
	}

	boundaryIdx := -1
	for i := pos + 1; i < len(order); i++ {
		if k := order[i].kind; k == KindFood || k == KindSleep {
			boundaryIdx = i
			break
		}
	}
	if boundaryIdx < 0 {
		return nil
	}
	boundary, ok := byTitle[order[boundaryIdx].title]
	if !ok {
		return nil
	}
	boundaryRange, ok := baseRange(boundary, seeds)
	if !ok {
		return nil
	}

	var targets []model.Task
	for i := pos + 1; i < boundaryIdx; i++ {
		if order[i].kind != KindFlexible {
			continue
		}
		if t, ok := byTitle[order[i].title]; ok {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	edge := boundaryRange.Start
	cursor := min(NormalizeRange(newRange).End, edge)
	if edge-cursor < MinCascadeMinutes*len(targets) {
		return nil
	}

	var updates []RoutineUpdate
	for i, t := range targets {
		reserve := MinCascadeMinutes * (len(targets) - 1 - i)
		alloc := max(min(currentDuration(t, seeds), edge-cursor-reserve), MinCascadeMinutes)
		r := TimeRange{Start: cursor, End: cursor + alloc}
		if i == len(targets)-1 {
			r.End = edge
		}
		cursor = r.End
		if u, changed := rangeUpdate(t, r); changed {
			updates = append(updates, u)
		}
	}
	return updates
}

// RealignReminder moves a reminder that fired at oldStart so it fires at
// newStart. Reminders set for any other time are left alone.
func RealignReminder(reminder *time.Time, oldStart, newStart int) (*time.Time, bool) {
	if reminder == nil {
		return nil, false
	}
	if MinuteOfDay(*reminder) != floorMod(oldStart, MinutesPerDay) || floorMod(oldStart, MinutesPerDay) == floorMod(newStart, MinutesPerDay) {
		return reminder, false
	}
	moved := AtMinute(*reminder, newStart)
	return &moved, true
}

// MinuteOfDay returns minutes after midnight of t in its own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// AtMinute returns t's calendar day at the given minute of day.
func AtMinute(t time.Time, minute int) time.Time {
	m := floorMod(minute, MinutesPerDay)
	y, mo, d := t.Date()
	return time.Date(y, mo, d, m/60, m%60, 0, 0, t.Location())
}

func rangeUpdate(t model.Task, r TimeRange) (RoutineUpdate, bool) {
	r = NormalizeRange(r)
	cur, ok := ParseTimeRange(t.Description)
	if ok && cur == r {
		return RoutineUpdate{}, false
	}
	u := RoutineUpdate{
		TaskID:      t.ID,
		Title:       t.Title,
		Range:       r,
		Description: InjectTimeMetadata(t.Description, r),
		ReminderAt:  t.ReminderAt,
	}
	if ok {
		u.ReminderAt, u.ReminderMoved = RealignReminder(t.ReminderAt, cur.Start, r.Start)
	}
	return u, true
}

func currentDuration(t model.Task, seeds []Seed) int {
	if r, ok := baseRange(t, seeds); ok {
		return RangeDuration(r)
	}
	return MinCascadeMinutes
}
