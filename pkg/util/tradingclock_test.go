package util

import (
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestWithinWindow(t *testing.T) {
	ny := mustLocation(t, "America/New_York")

	// 9:34 AM - 11:00 AM EST window in minutes.
	const open, close = 574, 660

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before open", time.Date(2024, 10, 1, 9, 33, 0, 0, ny), false},
		{"at open", time.Date(2024, 10, 1, 9, 34, 0, 0, ny), true},
		{"mid window", time.Date(2024, 10, 1, 10, 15, 0, 0, ny), true},
		{"at close", time.Date(2024, 10, 1, 11, 0, 0, 0, ny), true},
		{"after close", time.Date(2024, 10, 1, 11, 1, 0, 0, ny), false},
	}
	for _, tc := range cases {
		if got := WithinWindow(tc.t, ny, open, close); got != tc.want {
			t.Errorf("%s: WithinWindow = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWithinWindowConvertsZone(t *testing.T) {
	ny := mustLocation(t, "America/New_York")

	// 14:00 UTC on an EDT date is 10:00 in New York, inside the window.
	utc := time.Date(2024, 10, 1, 14, 0, 0, 0, time.UTC)
	if !WithinWindow(utc, ny, 574, 660) {
		t.Error("UTC instant not converted to session timezone")
	}
}

func TestDateKey(t *testing.T) {
	ny := mustLocation(t, "America/New_York")

	// Just after UTC midnight is still the previous day in New York.
	utc := time.Date(2024, 10, 2, 1, 0, 0, 0, time.UTC)
	if got := DateKey(utc, ny); got != "2024-10-01" {
		t.Errorf("DateKey = %s, want 2024-10-01", got)
	}
}

func TestWeekRange(t *testing.T) {
	ny := mustLocation(t, "America/New_York")

	// 2024-10-02 is a Wednesday.
	wed := time.Date(2024, 10, 2, 12, 0, 0, 0, ny)
	mon, fri := WeekRange(wed, ny)
	if mon != "2024-09-30" || fri != "2024-10-04" {
		t.Errorf("WeekRange = %s..%s, want 2024-09-30..2024-10-04", mon, fri)
	}

	// Sunday rolls back to the week that just ended.
	sun := time.Date(2024, 10, 6, 12, 0, 0, 0, ny)
	mon, fri = WeekRange(sun, ny)
	if mon != "2024-09-30" || fri != "2024-10-04" {
		t.Errorf("Sunday WeekRange = %s..%s, want 2024-09-30..2024-10-04", mon, fri)
	}
}

func TestParseClockMinute(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"08:30", 510, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"0830", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClockMinute(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClockMinute(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClockMinute(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClockMinute(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeMillis(t *testing.T) {
	ms := time.Date(2024, 10, 1, 9, 40, 0, 0, time.UTC).UnixMilli()
	got, ok := ParseTime(time.UnixMilli(ms).UTC().Format(time.RFC3339))
	if !ok {
		t.Fatal("expected RFC3339 parse")
	}
	if got.UTC().Hour() != 9 {
		t.Errorf("unexpected hour %d", got.UTC().Hour())
	}

	got, ok = ParseTime("1727775600000")
	if !ok {
		t.Fatal("expected millisecond parse")
	}
	if got.UnixMilli() != 1727775600000 {
		t.Errorf("millis = %d", got.UnixMilli())
	}
}
