package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"routine-planner/internal/model"
	"routine-planner/internal/schedule"
	"routine-planner/internal/service"
)

const helpText = `<b>Commands</b>
/today [YYYY-MM-DD] — the reconciled day
/tomorrow — the next day
/newtask — add a task for a day
/routine &lt;id&gt; 9:00-10:30 — move a routine, later focus blocks follow
/complete &lt;id&gt; — mark done
/reopen &lt;id&gt; — mark open again
/delete &lt;id&gt; — remove a task or routine
/meals 8:00 13:00 19:00 — set breakfast, lunch and dinner
/timezone Europe/Berlin — set your timezone
/cancel — stop the current dialog`

var menuAliases = map[string]string{
	menuLabelToday:    "today",
	menuLabelTomorrow: "tomorrow",
	menuLabelNewTask:  "newtask",
	menuLabelMeals:    "meals",
	menuLabelHelp:     "help",
}

var kindIcons = map[schedule.Kind]string{
	schedule.KindWake:     "☀️",
	schedule.KindFlexible: "🧠",
	schedule.KindFood:     "🍽",
	schedule.KindSleep:    "🌙",
}

// renderSchedule formats a reconciled day as an HTML message.
func renderSchedule(s service.Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>%s</b>\n", s.Day.Format("Mon, 02 Jan 2006"))
	if len(s.Entries) == 0 {
		b.WriteString("\nNothing planned.")
		return b.String()
	}

	b.WriteString("\n")
	for _, e := range s.Entries {
		b.WriteString(renderEntry(e))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nOpen: %d of %d", s.OpenCount(), len(s.Entries))
	return b.String()
}

func renderEntry(e service.Entry) string {
	when := "--:--"
	if e.HasRange {
		when = e.Range.String()
	}

	icon := "📌"
	if e.Routine {
		icon = kindIcons[e.Kind]
	}
	status := "▫️"
	if e.Task.IsCompleted {
		status = "✅"
	}

	line := fmt.Sprintf("%s <code>%s</code> %s %s <i>#%d</i>", status, when, icon, escape(e.Task.Title), e.Task.ID)
	if e.Task.IsCompleted {
		line = fmt.Sprintf("%s <code>%s</code> %s <s>%s</s> <i>#%d</i>", status, when, icon, escape(e.Task.Title), e.Task.ID)
	}
	if e.Task.ReminderAt != nil {
		line += " ⏰" + e.Task.ReminderAt.Format("15:04")
	}
	if !e.Routine && e.Notes != "" {
		line += "\n      " + escape(firstLine(e.Notes))
	}
	return line
}

func formatCreated(t model.Task) string {
	text := fmt.Sprintf("✅ «%s» saved as #%d.", escape(t.Title), t.ID)
	if r, ok := schedule.ParseTimeRange(t.Description); ok {
		text += fmt.Sprintf("\n🕘 %s", r)
	}
	if t.ReminderAt != nil {
		text += fmt.Sprintf("\n⏰ %s", t.ReminderAt.Format("02.01.2006 15:04"))
	}
	return text
}

func formatCascade(changed []model.Task) string {
	if len(changed) == 0 {
		return "Nothing changed."
	}
	var b strings.Builder
	b.WriteString("🔁 Updated:")
	for _, t := range changed {
		when := "--:--"
		if r, ok := schedule.ParseTimeRange(t.Description); ok {
			when = r.String()
		}
		fmt.Fprintf(&b, "\n<code>%s</code> %s", when, escape(t.Title))
	}
	return b.String()
}

func formatMeals(p model.MealPreferences) string {
	return fmt.Sprintf("🍽 Breakfast %s, lunch %s, dinner %s.",
		schedule.FormatClock(p.BreakfastStart),
		schedule.FormatClock(p.LunchStart),
		schedule.FormatClock(p.DinnerStart))
}

// parseMealsArgs reads "H:MM H:MM H:MM" into breakfast, lunch and dinner.
func parseMealsArgs(args string) (model.MealPreferences, bool) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return model.MealPreferences{}, false
	}
	var minutes [3]int
	for i, f := range fields {
		m, ok := schedule.ParseClock(f)
		if !ok {
			return model.MealPreferences{}, false
		}
		minutes[i] = m
	}
	return model.MealPreferences{
		BreakfastStart: minutes[0],
		LunchStart:     minutes[1],
		DinnerStart:    minutes[2],
	}, true
}

// parseDueInput reads the due-date answer of the new task dialog.
func parseDueInput(text string, today time.Time) (*time.Time, bool) {
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "today", strings.ToLower(menuLabelToday):
		return &midnight, true
	case "tomorrow", strings.ToLower(menuLabelTomorrow):
		next := midnight.AddDate(0, 0, 1)
		return &next, true
	}

	parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(text), today.Location())
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

// reminderTime places minute on the due day.
func reminderTime(due time.Time, minute int) time.Time {
	return schedule.AtMinute(due, minute)
}

func isSkipInput(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "-", "skip", strings.ToLower(btnSkip):
		return true
	}
	return false
}

func parseTaskID(data, prefix string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse task id from %q: %w", data, err)
	}
	return uint(id), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func escape(s string) string {
	return html.EscapeString(s)
}
