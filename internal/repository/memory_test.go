package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

func seededMemory(t *testing.T) (*MemoryStore, *model.Booking) {
	t.Helper()
	s := NewMemoryStore()
	s.PutPond(model.Pond{ID: 1, Name: "North", Shape: model.ShapeSquare, Distribution: [4]int{1, 1, 1, 1}, BookingEnabled: true})
	b := &model.Booking{
		ID: "b1", Type: model.BookingPond, PondID: 1, Day: "2026-10-20",
		Seats: []model.Seat{
			{Number: 1, Credential: "cred-1", Status: model.SeatUnassigned},
			{Number: 2, Credential: "cred-2", Status: model.SeatUnassigned},
		},
	}
	require.NoError(t, s.CreateBooking(context.Background(), b, nil))
	return s, b
}

func TestMemoryCreateBookingRejectsDuplicates(t *testing.T) {
	s, _ := seededMemory(t)
	ctx := context.Background()

	dupCred := &model.Booking{ID: "b2", Type: model.BookingPond, PondID: 1, Day: "2026-10-20",
		Seats: []model.Seat{{Number: 3, Credential: "cred-1"}}}
	assert.ErrorIs(t, s.CreateBooking(ctx, dupCred, nil), ErrConflict)

	noPond := &model.Booking{ID: "b3", Type: model.BookingPond, PondID: 7}
	assert.ErrorIs(t, s.CreateBooking(ctx, noPond, nil), ErrNotFound)

	list, err := s.ListPondBookings(ctx, 1, "2026-10-20")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryCheckInLifecycle(t *testing.T) {
	s, b := seededMemory(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	seatID := b.Seats[0].ID

	rec := &model.CheckInRecord{ID: "c1", BookingID: b.ID, SeatID: seatID, SeatNumber: 1, CheckInTime: at, ScannedBy: "op"}
	require.NoError(t, s.CreateCheckIn(ctx, rec))
	assert.ErrorIs(t, s.CreateCheckIn(ctx, &model.CheckInRecord{ID: "c2", SeatID: seatID, CheckInTime: at}), ErrConflict)

	closed, err := s.CloseCheckIn(ctx, "c1", "op", at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.CheckInCheckedOut, closed.Status)

	again, err := s.CloseCheckIn(ctx, "c1", "op", at.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrConflict)
	require.NotNil(t, again)
	assert.Equal(t, at.Add(time.Hour), *again.CheckOutTime)

	got, _, err := s.FindSeatByCredential(ctx, "cred-1")
	require.NoError(t, err)
	assert.Equal(t, model.SeatCheckedOut, got.SeatByNumber(1).Status)
}

func TestMemoryNoShowIsIdempotent(t *testing.T) {
	s, b := seededMemory(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 20, 12, 30, 0, 0, time.UTC)
	seatID := b.Seats[1].ID

	first, created, err := s.MarkNoShow(ctx, &model.CheckInRecord{ID: "n1", BookingID: b.ID, SeatID: seatID, SeatNumber: 2, CheckInTime: at})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.MarkNoShow(ctx, &model.CheckInRecord{ID: "n2", BookingID: b.ID, SeatID: seatID, SeatNumber: 2, CheckInTime: at})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	err = s.CreateCheckIn(ctx, &model.CheckInRecord{ID: "c9", SeatID: seatID, CheckInTime: at})
	assert.ErrorIs(t, err, ErrStaleState)
}
