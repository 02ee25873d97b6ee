package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trading-calendar helpers. All functions are pure: they map an instant plus
// a location to a classification, never reading the wall clock themselves.

// MinuteOfDay returns minutes since local midnight for t in loc.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// WithinWindow reports whether t falls inside [openMinute, closeMinute]
// local time, bounds inclusive.
func WithinWindow(t time.Time, loc *time.Location, openMinute, closeMinute int) bool {
	m := MinuteOfDay(t, loc)
	return m >= openMinute && m <= closeMinute
}

// DateKey formats t as the calendar-date key used for archive and bias
// records (YYYY-MM-DD in loc).
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// WeekRange returns the Monday and Friday date keys of the trading week
// containing t.
func WeekRange(t time.Time, loc *time.Location) (monday, friday string) {
	local := t.In(loc)
	offset := int(local.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday belongs to the week that just ended
	}
	mon := local.AddDate(0, 0, -offset)
	fri := mon.AddDate(0, 0, 4)
	return mon.Format("2006-01-02"), fri.Format("2006-01-02")
}

// DisplayTime formats t for outbound notifications in the session timezone,
// e.g. "Mon, Jan 2, 2006, 3:04 PM EST".
func DisplayTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.In(loc).Format("Mon, Jan 2, 2006, 3:04 PM MST")
}

// ParseClockMinute converts "HH:MM" to minutes since midnight.
func ParseClockMinute(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
