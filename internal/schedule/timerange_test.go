package schedule

import (
	"strings"
	"testing"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name string
		text string
		want TimeRange
		ok   bool
	}{
		{name: "plain", text: "@time 9:00-10:30", want: TimeRange{540, 630}, ok: true},
		{name: "with notes", text: "Buy milk\n@time 09:00-10:30\nTime: 09:00–10:30", want: TimeRange{540, 630}, ok: true},
		{name: "case and padding", text: "  @TIME 7:05-7:45  ", want: TimeRange{425, 465}, ok: true},
		{name: "crosses midnight", text: "@time 22:30-06:30", want: TimeRange{1350, 1830}, ok: true},
		{name: "equal ends span a day", text: "@time 10:00-10:00", want: TimeRange{600, 2040}, ok: true},
		{name: "crlf", text: "notes\r\n@time 8:00-9:00\r\n", want: TimeRange{480, 540}, ok: true},
		{name: "first valid wins", text: "@time 25:00-26:00\n@time 10:00-11:00\n@time 12:00-13:00", want: TimeRange{600, 660}, ok: true},
		{name: "hour out of range", text: "@time 24:00-01:00", ok: false},
		{name: "single digit minutes", text: "@time 9:0-10:00", ok: false},
		{name: "minute out of range", text: "@time 9:60-10:00", ok: false},
		{name: "inline marker ignored", text: "see @time 9:00-10:00", ok: false},
		{name: "human line only", text: "Time: 09:00–10:00", ok: false},
		{name: "empty", text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimeRange(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStripTimeMetadata(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "marker and human line", text: "Buy milk\n@time 9:00-10:00\nTime: 09:00–10:00", want: "Buy milk"},
		{name: "hyphen human line", text: "Time: 9:00 - 10:00\nCall mom", want: "Call mom"},
		{name: "trims outer blank lines", text: "\n\nBuy milk\n@time 9:00-10:00\n\n", want: "Buy milk"},
		{name: "keeps inner blank lines", text: "a\n\nb\n@time 9:00-10:00", want: "a\n\nb"},
		{name: "only metadata", text: "@time 9:00-10:00\nTime: 09:00–10:00", want: ""},
		{name: "no metadata", text: "just notes", want: "just notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTimeMetadata(tt.text); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInjectTimeMetadata(t *testing.T) {
	got := InjectTimeMetadata("", TimeRange{540, 630})
	want := "@time 09:00-10:30\nTime: 09:00–10:30"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = InjectTimeMetadata("Buy milk\n@time 8:00-9:00\nTime: 08:00–09:00", TimeRange{600, 660})
	want = "Buy milk\n@time 10:00-11:00\nTime: 10:00–11:00"
	if got != want {
		t.Errorf("replace: got %q, want %q", got, want)
	}
	if n := strings.Count(got, "@time"); n != 1 {
		t.Errorf("expected one marker line, got %d", n)
	}
}

func TestInjectParseRoundTrip(t *testing.T) {
	notes := []string{"", "Buy milk", "line one\n\nline three", "old\n@time 1:00-2:00\nTime: 01:00–02:00"}
	ranges := []TimeRange{{0, 30}, {540, 630}, {1350, 1830}, {-30, 30}, {1500, 1560}, {600, 600}}

	for _, n := range notes {
		for _, r := range ranges {
			text := InjectTimeMetadata(n, r)
			got, ok := ParseTimeRange(text)
			if !ok {
				t.Fatalf("no marker in %q", text)
			}
			if want := NormalizeRange(r); got != want {
				t.Errorf("ParseTimeRange(Inject(%q, %+v)) = %+v, want %+v", n, r, got, want)
			}
			if StripTimeMetadata(text) != StripTimeMetadata(n) {
				t.Errorf("notes changed: %q -> %q", StripTimeMetadata(n), StripTimeMetadata(text))
			}
		}
	}
}

func TestNormalizeRange(t *testing.T) {
	tests := []struct {
		in, want TimeRange
	}{
		{TimeRange{540, 630}, TimeRange{540, 630}},
		{TimeRange{-30, 30}, TimeRange{1410, 1470}},
		{TimeRange{1500, 1560}, TimeRange{60, 120}},
		{TimeRange{600, 600}, TimeRange{600, 2040}},
		{TimeRange{600, 540}, TimeRange{600, 1980}},
		{TimeRange{600, 3600}, TimeRange{600, 2040}},
	}

	for _, tt := range tests {
		got := NormalizeRange(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeRange(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
		if d := RangeDuration(got); d <= 0 || d > MinutesPerDay {
			t.Errorf("NormalizeRange(%+v) duration %d out of (0, %d]", tt.in, d, MinutesPerDay)
		}
	}
}

func TestRangesOverlap(t *testing.T) {
	tests := []struct {
		a, b TimeRange
		want bool
	}{
		{TimeRange{0, 60}, TimeRange{30, 90}, true},
		{TimeRange{0, 60}, TimeRange{60, 90}, false},
		{TimeRange{0, 120}, TimeRange{30, 60}, true},
		{TimeRange{100, 200}, TimeRange{0, 50}, false},
	}
	for _, tt := range tests {
		if got := RangesOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("RangesOverlap(%+v, %+v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := RangesOverlap(tt.b, tt.a); got != tt.want {
			t.Errorf("RangesOverlap(%+v, %+v) is not symmetric", tt.b, tt.a)
		}
	}
}

func TestClampRangeToBounds(t *testing.T) {
	got, ok := ClampRangeToBounds(TimeRange{500, 700}, TimeRange{540, 600})
	if !ok || got != (TimeRange{540, 600}) {
		t.Errorf("got %+v %v, want {540 600} true", got, ok)
	}
	if _, ok := ClampRangeToBounds(TimeRange{0, 60}, TimeRange{60, 120}); ok {
		t.Error("expected disjoint ranges to clamp to nothing")
	}
}

func TestFormatAndParseClock(t *testing.T) {
	if got := FormatClock(1470); got != "00:30" {
		t.Errorf("FormatClock(1470) = %q", got)
	}
	if got := FormatClock(-30); got != "23:30" {
		t.Errorf("FormatClock(-30) = %q", got)
	}
	if got, ok := ParseClock("8:45"); !ok || got != 525 {
		t.Errorf("ParseClock(8:45) = %d %v", got, ok)
	}
	if _, ok := ParseClock("8.45"); ok {
		t.Error("expected 8.45 to be rejected")
	}
}

func TestParseRangeArg(t *testing.T) {
	tests := []struct {
		in   string
		want TimeRange
		ok   bool
	}{
		{"9:00-10:30", TimeRange{540, 630}, true},
		{" 22:30–06:30 ", TimeRange{1350, 1830}, true},
		{"9-10", TimeRange{}, false},
		{"9:00-10:00-11:00", TimeRange{}, false},
		{"", TimeRange{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseRangeArg(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseRangeArg(%q) = %+v %v, want %+v %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTimeRangeString(t *testing.T) {
	if got := (TimeRange{1350, 1830}).String(); got != "22:30-06:30" {
		t.Errorf("got %q", got)
	}
}
