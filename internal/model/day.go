package model

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-day key format used for bookings and events.
const DayLayout = "2006-01-02"

// DayKey normalises a timestamp to the calendar day it falls on in loc.
// Bookings may carry full timestamps; comparisons are always made on day
// keys, never on timestamp equality.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay accepts either a bare YYYY-MM-DD key or an RFC3339 timestamp and
// returns the day key in loc.
func ParseDay(s string, loc *time.Location) (string, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(DayLayout, s, loc); err == nil {
		return t.Format(DayLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayKey(t, loc), nil
	}
	return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", s)
}

// MinuteOfDay returns the number of whole minutes elapsed since midnight
// in loc.  Seconds are truncated, so 12:00:59 is minute 720.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// FormatMinute renders a minute-of-day as HH:MM.  Values outside a single
// day are clamped so an early window never prints a negative time.
func FormatMinute(m int) string {
	if m < 0 {
		m = 0
	}
	if m > 24*60-1 {
		m = 24*60 - 1
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
