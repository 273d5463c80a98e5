package availability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

func ptr(v uint64) *uint64 { return &v }

func pondBooking(id string, slot uint64, day string, numbers ...int) model.Booking {
	b := model.Booking{ID: id, Type: model.BookingPond, PondID: 1, Day: day, TimeSlotID: ptr(slot)}
	for _, n := range numbers {
		b.Seats = append(b.Seats, model.Seat{Number: n, Credential: id + "-" + string(rune('a'+n))})
	}
	return b
}

func TestForPondFiltersOtherSessions(t *testing.T) {
	p := model.Pond{ID: 1, Capacity: 6, Shape: model.ShapeSquare, Distribution: [4]int{1, 1, 1, 1}}
	bookings := []model.Booking{
		pondBooking("a", 1, "2026-10-19", 1, 2),
		pondBooking("b", 2, "2026-10-19", 3),
		pondBooking("c", 1, "2026-10-20", 4),
		{ID: "d", Type: model.BookingEvent, PondID: 1, Day: "2026-10-19", EventID: ptr(9)},
	}

	a := ForPond(p, bookings, "2026-10-19", 1)
	assert.Equal(t, 4, a.Total, "distribution sum governs")
	assert.Equal(t, 2, a.Booked)
	assert.Equal(t, 2, a.Available)
	assert.Equal(t, []int{1, 2}, a.Taken)
}

func TestForPondNeverNegative(t *testing.T) {
	p := model.Pond{ID: 1, Capacity: 1, Shape: model.ShapeCircle, Distribution: [4]int{1}}
	a := ForPond(p, []model.Booking{pondBooking("a", 1, "2026-10-19", 1, 2)}, "2026-10-19", 1)
	assert.Equal(t, 0, a.Available)
}

func TestForEventCountsBookings(t *testing.T) {
	e := model.Event{ID: 9, Date: "2026-10-25", MaxParticipants: 3}
	b := model.Booking{ID: "x", Type: model.BookingEvent, EventID: ptr(9),
		Seats: []model.Seat{{Number: 1}, {Number: 2}}}
	other := model.Booking{ID: "y", Type: model.BookingEvent, EventID: ptr(10)}

	a := ForEvent(e, []model.Booking{b, other})
	assert.Equal(t, 1, a.Booked)
	assert.Equal(t, 2, a.Available)
}

func TestCalculatorReadsStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	store.PutPond(model.Pond{ID: 1, Name: "Square", Capacity: 4, Shape: model.ShapeSquare,
		Distribution: [4]int{1, 1, 1, 1}, BookingEnabled: true})
	morning, err := model.NewTimeSlot(1, "Morning", "09:00 - 12:00")
	require.NoError(t, err)
	evening, err := model.NewTimeSlot(2, "Evening", "5:00 pm to 9:00 pm")
	require.NoError(t, err)
	store.PutTimeSlot(morning)
	store.PutTimeSlot(evening)
	b := pondBooking("a", 1, "2026-10-19", 1, 2, 3)
	require.NoError(t, store.CreateBooking(ctx, &b, nil))

	calc := NewCalculator(store, nil)

	a, err := calc.PondSeats(ctx, 1, "2026-10-19", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Available)

	slots, err := calc.PondSlots(ctx, 1, "2026-10-19T10:00:00Z")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	for _, s := range slots {
		if s.Slot.ID == 2 {
			assert.Equal(t, 4, s.Available)
		}
	}

	_, err = calc.PondSeats(ctx, 7, "2026-10-19", 1)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	_, err = calc.PondSeats(ctx, 1, "2026-10-19", 5)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	_, err = calc.PondSeats(ctx, 1, "next tuesday", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = calc.EventSeats(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}
