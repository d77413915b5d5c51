package schedule

import (
	"strings"

	"routine-planner/internal/model"
)

// CatalogVersion is bumped whenever seed titles, summaries or reminders change
// in a way existing users should receive.
const CatalogVersion = 3

// Kind classifies catalog routines.
type Kind int

const (
	KindWake Kind = iota
	KindFlexible
	KindFood
	KindSleep
)

func (k Kind) String() string {
	switch k {
	case KindWake:
		return "wake"
	case KindFlexible:
		return "flexible"
	case KindFood:
		return "food"
	case KindSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

const (
	TitleWake           = "Wake up"
	TitleEarlyFocus     = "Early focus"
	TitleBreakfast      = "Breakfast"
	TitleMorningFocus   = "Morning focus"
	TitleLunch          = "Lunch"
	TitleAfternoonFocus = "Afternoon focus"
	TitleDinner         = "Dinner"
	TitleEveningFocus   = "Evening focus"
	TitleSleep          = "Sleep"
)

const (
	wakeStart  = 6*60 + 30
	wakeEnd    = 7 * 60
	sleepStart = 22*60 + 30
	sleepEnd   = 6*60 + 30 + MinutesPerDay

	// MealDuration is the length of every meal block.
	MealDuration = 60
	// MinMealSpacing is the minimum distance between consecutive meal starts.
	MinMealSpacing = 60

	latestBreakfast = 11 * 60
	latestLunch     = 17 * 60
	latestDinner    = sleepStart - 60
)

type catalogEntry struct {
	title string
	kind  Kind
}

var catalog = []catalogEntry{
	{TitleWake, KindWake},
	{TitleEarlyFocus, KindFlexible},
	{TitleBreakfast, KindFood},
	{TitleMorningFocus, KindFlexible},
	{TitleLunch, KindFood},
	{TitleAfternoonFocus, KindFlexible},
	{TitleDinner, KindFood},
	{TitleEveningFocus, KindFlexible},
	{TitleSleep, KindSleep},
}

// LegacyTitles were seeded by earlier catalog versions and are removed on upgrade.
var LegacyTitles = []string{
	"Work",
	"Morning work",
	"Afternoon work",
	"Snack",
	"Wind down",
}

var summaries = map[string]string{
	TitleWake:           "Get up, drink water and open the curtains.",
	TitleEarlyFocus:     "Quiet time for the most important thing today.",
	TitleBreakfast:      "Breakfast away from screens.",
	TitleMorningFocus:   "Deep work block. Notifications off.",
	TitleLunch:          "Lunch and a short walk.",
	TitleAfternoonFocus: "Meetings, errands and lighter work.",
	TitleDinner:         "Dinner.",
	TitleEveningFocus:   "Personal projects, reading or rest.",
	TitleSleep:          "Screens off and lights out.",
}

// Seed is the catalog template for one routine.
type Seed struct {
	Title   string
	Summary string
	Kind    Kind
	// StartMinute and EndMinute bound the seed window. They are equal when a
	// flexible block has no room between its anchors.
	StartMinute int
	EndMinute   int
	// Reminder marks seeds that remind at their start.
	Reminder bool
}

// Range returns the seed window, or false when it is empty.
func (s Seed) Range() (TimeRange, bool) {
	if s.EndMinute <= s.StartMinute {
		return TimeRange{}, false
	}
	return TimeRange{Start: s.StartMinute, End: s.EndMinute}, true
}

// Description is the notes text a freshly seeded routine gets.
func (s Seed) Description() string {
	r, ok := s.Range()
	if !ok {
		return s.Summary
	}
	return InjectTimeMetadata(s.Summary, r)
}

// ReminderMinute returns the minute of day the seed reminds at.
func (s Seed) ReminderMinute() (int, bool) {
	if !s.Reminder {
		return 0, false
	}
	return floorMod(s.StartMinute, MinutesPerDay), true
}

// DefaultMealPreferences returns the meal times used when a user never chose any.
func DefaultMealPreferences() model.MealPreferences {
	return model.MealPreferences{
		BreakfastStart: 8 * 60,
		LunchStart:     13 * 60,
		DinnerStart:    19 * 60,
	}
}

// ClampMealPreferences moves each meal into its legal band. A meal that ends
// up too close to the previous one is pushed later.
func ClampMealPreferences(p model.MealPreferences) model.MealPreferences {
	p.BreakfastStart = clamp(p.BreakfastStart, wakeEnd, latestBreakfast)
	p.LunchStart = clamp(p.LunchStart, p.BreakfastStart+MinMealSpacing, latestLunch)
	p.DinnerStart = clamp(p.DinnerStart, p.LunchStart+MinMealSpacing, latestDinner)
	return p
}

// BuildRoutineSeeds returns the nine catalog seeds in canonical order.
func BuildRoutineSeeds(prefs model.MealPreferences) []Seed {
	p := ClampMealPreferences(prefs)
	anchors := map[string][2]int{
		TitleWake:      {wakeStart, wakeEnd},
		TitleBreakfast: {p.BreakfastStart, p.BreakfastStart + MealDuration},
		TitleLunch:     {p.LunchStart, p.LunchStart + MealDuration},
		TitleDinner:    {p.DinnerStart, p.DinnerStart + MealDuration},
		TitleSleep:     {sleepStart, sleepEnd},
	}

	seeds := make([]Seed, len(catalog))
	for i, entry := range catalog {
		seed := Seed{Title: entry.title, Summary: summaries[entry.title], Kind: entry.kind}
		if entry.kind == KindFlexible {
			prev := anchors[catalog[i-1].title]
			next := anchors[catalog[i+1].title]
			seed.StartMinute = prev[1]
			seed.EndMinute = max(next[0], prev[1])
		} else {
			window := anchors[entry.title]
			seed.StartMinute, seed.EndMinute = window[0], window[1]
			seed.Reminder = entry.kind == KindFood || entry.kind == KindSleep
		}
		seeds[i] = seed
	}
	return seeds
}

// Ordinal returns the catalog position of title, or the catalog length for
// titles outside the catalog.
func Ordinal(title string) int {
	for i, entry := range catalog {
		if entry.title == title {
			return i
		}
	}
	return len(catalog)
}

// KindOf returns the kind of a catalog title.
func KindOf(title string) (Kind, bool) {
	i := Ordinal(title)
	if i == len(catalog) {
		return 0, false
	}
	return catalog[i].kind, true
}

// IsCatalogTitle reports whether title names a current catalog routine.
func IsCatalogTitle(title string) bool {
	return Ordinal(title) < len(catalog)
}

// IsLegacyTitle reports whether title was used by an earlier catalog version.
func IsLegacyTitle(title string) bool {
	for _, legacy := range LegacyTitles {
		if strings.EqualFold(legacy, title) {
			return true
		}
	}
	return false
}

// SeedByTitle finds the seed for title.
func SeedByTitle(seeds []Seed, title string) (Seed, bool) {
	for _, s := range seeds {
		if s.Title == title {
			return s, true
		}
	}
	return Seed{}, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
