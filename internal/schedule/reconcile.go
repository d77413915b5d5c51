package schedule

import (
	"sort"

	"routine-planner/internal/model"
)

// Reconcile builds one day's schedule from the fixed tasks due that day and
// the user's routines. Wake and sleep stay put and block time. Meals move past
// whatever blocks them but never into sleep, flexible blocks shrink to the
// largest free gap or disappear.
// The input is not modified; routines get copies with adjusted time lines.
func Reconcile(tasks []model.Task, seeds []Seed) []model.Task {
	var (
		blockers []TimeRange
		out      []model.Task
		routines []model.Task
	)

	for _, t := range tasks {
		if !t.IsRoutine() {
			out = append(out, t)
			if r, ok := ParseTimeRange(t.Description); ok {
				blockers = addBlocker(blockers, r)
			}
			continue
		}
		if IsCatalogTitle(t.Title) {
			routines = append(routines, t)
		}
	}
	sort.SliceStable(routines, func(i, j int) bool {
		return Ordinal(routines[i].Title) < Ordinal(routines[j].Title)
	})

	sleepStart := -1
	for _, t := range routines {
		kind, _ := KindOf(t.Title)
		if kind != KindWake && kind != KindSleep {
			continue
		}
		base, ok := baseRange(t, seeds)
		if !ok {
			out = append(out, t)
			continue
		}
		if kind == KindSleep {
			sleepStart = base.Start
		}
		blockers = addBlocker(blockers, base)
		out = append(out, withRange(t, base))
	}

	for _, t := range routinesOfKind(routines, KindFood) {
		base, ok := baseRange(t, seeds)
		if !ok {
			out = append(out, t)
			continue
		}
		mealLimit := MinutesPerDay
		if sleepStart > base.Start {
			mealLimit = sleepStart
		}
		placed, ok := displace(base, blockers, mealLimit)
		if !ok {
			continue
		}
		blockers = addBlocker(blockers, placed)
		out = append(out, withRange(t, placed))
	}

	for _, t := range routinesOfKind(routines, KindFlexible) {
		base, ok := baseRange(t, seeds)
		if !ok {
			continue
		}
		gap, ok := LargestFreeGap(base, blockers)
		if !ok {
			continue
		}
		blockers = addBlocker(blockers, gap)
		out = append(out, withRange(t, gap))
	}

	SortEntries(out)
	return out
}

// LargestFreeGap returns the widest part of window not covered by blockers.
// Ties go to the earliest gap.
func LargestFreeGap(window TimeRange, blockers []TimeRange) (TimeRange, bool) {
	var clipped []TimeRange
	for _, b := range blockers {
		if c, ok := ClampRangeToBounds(b, window); ok {
			clipped = append(clipped, c)
		}
	}
	sort.Slice(clipped, func(i, j int) bool { return clipped[i].Start < clipped[j].Start })

	var merged []TimeRange
	for _, c := range clipped {
		if n := len(merged); n > 0 && c.Start <= merged[n-1].End {
			merged[n-1].End = max(merged[n-1].End, c.End)
			continue
		}
		merged = append(merged, c)
	}

	var best TimeRange
	cursor := window.Start
	consider := func(gap TimeRange) {
		if RangeDuration(gap) > RangeDuration(best) {
			best = gap
		}
	}
	for _, m := range merged {
		if m.Start > cursor {
			consider(TimeRange{Start: cursor, End: m.Start})
		}
		cursor = max(cursor, m.End)
	}
	if window.End > cursor {
		consider(TimeRange{Start: cursor, End: window.End})
	}
	return best, RangeDuration(best) > 0
}

// SortEntries orders a day: open items first, then by start minute (untimed
// last), then catalog order, then newest first.
func SortEntries(entries []model.Task) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entryLess(entries[i], entries[j])
	})
}

func entryLess(a, b model.Task) bool {
	if a.IsCompleted != b.IsCompleted {
		return !a.IsCompleted
	}
	ar, aok := ParseTimeRange(a.Description)
	br, bok := ParseTimeRange(b.Description)
	if aok != bok {
		return aok
	}
	if aok && ar.Start != br.Start {
		return ar.Start < br.Start
	}
	if ao, bo := entryOrdinal(a), entryOrdinal(b); ao != bo {
		return ao < bo
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func entryOrdinal(t model.Task) int {
	if !t.IsRoutine() {
		return len(catalog)
	}
	return Ordinal(t.Title)
}

// displace shifts base past every overlapping blocker, keeping its duration.
// A window pushed beyond limit is pinned to end at limit. When that still
// overlaps, the meal shrinks to the largest free gap between its start and
// limit; ok is false when no such gap exists.
func displace(base TimeRange, blockers []TimeRange, limit int) (TimeRange, bool) {
	dur := RangeDuration(base)
	r := base
	for i := 0; i <= len(blockers); i++ {
		latest, hit := r.Start, false
		for _, b := range blockers {
			if RangesOverlap(r, b) {
				hit = true
				latest = max(latest, b.End)
			}
		}
		if !hit {
			return r, true
		}
		r = TimeRange{Start: latest, End: latest + dur}
		if r.End > limit {
			break
		}
	}
	if r.End > limit {
		r = TimeRange{Start: limit - dur, End: limit}
	}
	if !overlapsAny(r, blockers) {
		return r, true
	}
	if base.Start >= limit {
		return TimeRange{}, false
	}
	gap, ok := LargestFreeGap(TimeRange{Start: base.Start, End: limit}, blockers)
	if ok && RangeDuration(gap) > dur {
		gap.End = gap.Start + dur
	}
	return gap, ok
}

func overlapsAny(r TimeRange, blockers []TimeRange) bool {
	for _, b := range blockers {
		if RangesOverlap(r, b) {
			return true
		}
	}
	return false
}

func baseRange(t model.Task, seeds []Seed) (TimeRange, bool) {
	if r, ok := ParseTimeRange(t.Description); ok {
		return r, true
	}
	if seed, ok := SeedByTitle(seeds, t.Title); ok {
		return seed.Range()
	}
	return TimeRange{}, false
}

func withRange(t model.Task, r TimeRange) model.Task {
	if cur, ok := ParseTimeRange(t.Description); ok && cur == NormalizeRange(r) {
		return t
	}
	t.Description = InjectTimeMetadata(t.Description, r)
	return t
}

// addBlocker records r, plus its early-morning part when r crosses midnight.
func addBlocker(blockers []TimeRange, r TimeRange) []TimeRange {
	blockers = append(blockers, r)
	if r.End > MinutesPerDay {
		blockers = append(blockers, TimeRange{Start: r.Start - MinutesPerDay, End: r.End - MinutesPerDay})
	}
	return blockers
}

func routinesOfKind(routines []model.Task, kind Kind) []model.Task {
	var out []model.Task
	for _, t := range routines {
		if k, _ := KindOf(t.Title); k == kind {
			out = append(out, t)
		}
	}
	return out
}
