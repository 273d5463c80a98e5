package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end int
	}{
		{"09:00 - 12:00", 540, 720},
		{"6:30am to 11am", 390, 660},
		{"5:00 pm to 9:00 pm", 1020, 1260},
		{"14:00–18:00", 840, 1080},
		{"12am - 12pm", 0, 720},
	}
	for _, tc := range cases {
		start, end, err := ParseTimeRange(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.start, start, tc.in)
		assert.Equal(t, tc.end, end, tc.in)
	}

	for _, bad := range []string{"", "09:00", "12:00 - 09:00", "13pm - 14pm", "09:75 - 10:00", "noon - 1"} {
		_, _, err := ParseTimeRange(bad)
		assert.ErrorIs(t, err, ErrInvalidTimeRange, bad)
	}
}

func TestDayHelpers(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	ts := time.Date(2026, 10, 19, 20, 30, 59, 0, time.UTC)

	assert.Equal(t, "2026-10-20", DayKey(ts, loc))
	assert.Equal(t, 3*60+30, MinuteOfDay(ts, loc))

	day, err := ParseDay("2026-10-19T20:30:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", day)
	_, err = ParseDay("19/10/2026", loc)
	assert.Error(t, err)

	assert.Equal(t, "00:00", FormatMinute(-15))
	assert.Equal(t, "08:45", FormatMinute(525))
	assert.Equal(t, "23:59", FormatMinute(24*60+10))
}

func TestPondSeatTotal(t *testing.T) {
	p := Pond{Capacity: 10, Shape: ShapeRectangle, Distribution: [4]int{4, 2, 4, 2}}
	assert.Equal(t, 12, p.SeatTotal())
	assert.True(t, p.CapacityMismatch())

	empty := Pond{Capacity: 6, Shape: ShapeRectangle}
	assert.Equal(t, 6, empty.SeatTotal())
	assert.False(t, empty.CapacityMismatch())

	circle := Pond{Capacity: 8, Shape: ShapeCircle, Distribution: [4]int{8}}
	assert.False(t, circle.CapacityMismatch())
}
