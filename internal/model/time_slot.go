package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TimeSlot is immutable reference data describing a bookable time-of-day
// range for pond bookings.  Range holds the human readable form (for
// example "09:00 - 12:00"); StartMin and EndMin are the parsed bounds in
// minutes since midnight.
//
// Fields:
//  ID       – primary key identifier.
//  Label    – display label, e.g. "Morning".
//  Range    – raw time range string.
//  StartMin – start of the slot in minutes of day.
//  EndMin   – end of the slot in minutes of day.
type TimeSlot struct {
	ID       uint64 `json:"id"`        // time_slots.id
	Label    string `json:"label"`     // time_slots.label
	Range    string `json:"range"`     // time_slots.time_range
	StartMin int    `json:"start_min"` // parsed from time_range
	EndMin   int    `json:"end_min"`   // parsed from time_range
}

// ErrInvalidTimeRange is returned when a time range string cannot be parsed.
var ErrInvalidTimeRange = errors.New("invalid time range")

// ParseTimeRange splits a range such as "09:00 - 12:00", "6:30am to 11am"
// or "14:00–18:00" into start and end minutes of day.  The end must be
// strictly after the start; slots never cross midnight.
func ParseTimeRange(s string) (start, end int, err error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "–", "-")
	norm = strings.ReplaceAll(norm, "—", "-")
	norm = strings.ReplaceAll(norm, " to ", "-")
	parts := strings.Split(norm, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	if start, err = parseClock(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeRange, s, err)
	}
	if end, err = parseClock(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeRange, s, err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: %q ends before it starts", ErrInvalidTimeRange, s)
	}
	return start, end, nil
}

// parseClock parses "HH:MM", "H", "H:MMam" or "H pm" into minutes of day.
func parseClock(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	meridiem := ""
	switch {
	case strings.HasSuffix(s, "am"):
		meridiem, s = "am", strings.TrimSpace(strings.TrimSuffix(s, "am"))
	case strings.HasSuffix(s, "pm"):
		meridiem, s = "pm", strings.TrimSpace(strings.TrimSuffix(s, "pm"))
	}
	hh, mm := s, "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm = s[:i], s[i+1:]
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, fmt.Errorf("hour %q", hh)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("minute %q", mm)
	}
	switch meridiem {
	case "am":
		if h < 1 || h > 12 {
			return 0, fmt.Errorf("hour %d", h)
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, fmt.Errorf("hour %d", h)
		}
		if h != 12 {
			h += 12
		}
	}
	if h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("hour %d", h)
	}
	return h*60 + m, nil
}

// NewTimeSlot parses rng and returns a populated TimeSlot.
func NewTimeSlot(id uint64, label, rng string) (TimeSlot, error) {
	start, end, err := ParseTimeRange(rng)
	if err != nil {
		return TimeSlot{}, err
	}
	return TimeSlot{ID: id, Label: label, Range: rng, StartMin: start, EndMin: end}, nil
}
