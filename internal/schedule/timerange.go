package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of a day in minutes.
const MinutesPerDay = 24 * 60

// TimeRange is a start/end pair in minutes after midnight. End may exceed
// MinutesPerDay for a window that crosses midnight.
type TimeRange struct {
	Start int
	End   int
}

var (
	markerPattern = regexp.MustCompile(`(?i)^@time\s+(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)
	humanPattern  = regexp.MustCompile(`^Time:\s*\d{1,2}:\d{2}\s*[–-]\s*\d{1,2}:\d{2}$`)
	clockPattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseTimeRange returns the first well-formed @time marker found in text.
func ParseTimeRange(text string) (TimeRange, bool) {
	for _, line := range splitLines(text) {
		m := markerPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		start, ok := clockMinutes(m[1], m[2])
		if !ok {
			continue
		}
		end, ok := clockMinutes(m[3], m[4])
		if !ok {
			continue
		}
		if end <= start {
			end += MinutesPerDay
		}
		return TimeRange{Start: start, End: end}, true
	}
	return TimeRange{}, false
}

// StripTimeMetadata removes marker lines and their human-readable companions,
// keeping the rest of the notes in order.
func StripTimeMetadata(text string) string {
	var kept []string
	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if markerPattern.MatchString(trimmed) || humanPattern.MatchString(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, "\n")
}

// InjectTimeMetadata replaces any existing time lines in text with r.
func InjectTimeMetadata(text string, r TimeRange) string {
	n := NormalizeRange(r)
	var b strings.Builder
	if stripped := StripTimeMetadata(text); stripped != "" {
		b.WriteString(stripped)
		b.WriteByte('\n')
	}
	b.WriteString(FormatMarker(n))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("Time: %s–%s", FormatClock(n.Start), FormatClock(n.End)))
	return b.String()
}

// FormatMarker renders the machine-readable marker line for r.
func FormatMarker(r TimeRange) string {
	n := NormalizeRange(r)
	return fmt.Sprintf("@time %s-%s", FormatClock(n.Start), FormatClock(n.End))
}

// NormalizeRange moves the start into [0, MinutesPerDay) and forces
// 0 < duration <= MinutesPerDay.
func NormalizeRange(r TimeRange) TimeRange {
	start := floorMod(r.Start, MinutesPerDay)
	end := r.End - (r.Start - start)
	for end <= start {
		end += MinutesPerDay
	}
	if end-start > MinutesPerDay {
		end = start + MinutesPerDay
	}
	return TimeRange{Start: start, End: end}
}

// RangesOverlap reports whether two half-open ranges intersect.
func RangesOverlap(a, b TimeRange) bool {
	return a.Start < b.End && b.Start < a.End
}

// ClampRangeToBounds intersects r with bounds.
func ClampRangeToBounds(r, bounds TimeRange) (TimeRange, bool) {
	out := TimeRange{Start: max(r.Start, bounds.Start), End: min(r.End, bounds.End)}
	if out.End <= out.Start {
		return TimeRange{}, false
	}
	return out, true
}

// RangeDuration returns the length of r in minutes.
func RangeDuration(r TimeRange) int {
	return r.End - r.Start
}

// String renders r as HH:MM-HH:MM.
func (r TimeRange) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}

// FormatClock renders minutes after midnight as HH:MM, wrapping past midnight.
func FormatClock(minutes int) string {
	m := floorMod(minutes, MinutesPerDay)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock parses H:MM or HH:MM into minutes after midnight.
func ParseClock(s string) (int, bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	return clockMinutes(m[1], m[2])
}

// ParseRangeArg parses user input such as "9:00-10:30" or "22:30–06:30".
func ParseRangeArg(s string) (TimeRange, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "–", "-")
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TimeRange{}, false
	}
	start, ok := ParseClock(parts[0])
	if !ok {
		return TimeRange{}, false
	}
	end, ok := ParseClock(parts[1])
	if !ok {
		return TimeRange{}, false
	}
	return NormalizeRange(TimeRange{Start: start, End: end}), true
}

func clockMinutes(hh, mm string) (int, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	if len(mm) != 2 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
