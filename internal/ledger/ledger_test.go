package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

var now = time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func setup(t *testing.T) (*Ledger, *repository.MemoryStore, *recorder) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.PutPond(model.Pond{
		ID: 1, Name: "Square", Capacity: 4, Shape: model.ShapeSquare,
		Distribution: [4]int{1, 1, 1, 1}, BookingEnabled: true, PricePerSeat: decimal.NewFromInt(10),
	})
	store.PutPond(model.Pond{
		ID: 2, Name: "Long", Capacity: 10, Shape: model.ShapeRectangle,
		Distribution: [4]int{3, 2, 3, 2}, BookingEnabled: true, PricePerSeat: decimal.RequireFromString("7.50"),
	})
	store.PutPond(model.Pond{ID: 3, Name: "Closed", Capacity: 4, Shape: model.ShapeCircle, Distribution: [4]int{4}})
	slot, err := model.NewTimeSlot(1, "Morning", "09:00 - 12:00")
	require.NoError(t, err)
	store.PutTimeSlot(slot)
	store.PutEvent(model.Event{
		ID: 10, Name: "Autumn Cup", Date: "2026-10-25", StartMin: 8 * 60, EndMin: 14 * 60,
		MaxParticipants: 2, PondIDs: []uint64{2}, BookingOpensAt: now.Add(-24 * time.Hour),
		Status: model.EventOpen, EntryFee: decimal.NewFromInt(25),
	})

	iss, err := credential.NewIssuer("ledger-test")
	require.NoError(t, err)
	rec := &recorder{}
	l := New(store, iss, rec, nil, time.UTC)
	l.Now = func() time.Time { return now }
	return l, store, rec
}

func pondReq(pond uint64, seats int) Request {
	return Request{Type: model.BookingPond, PondID: pond, Date: "2026-10-19", TimeSlotID: 1, Seats: seats, OwnerID: "u-1"}
}

func TestCapacityScenario(t *testing.T) {
	l, _, rec := setup(t)
	ctx := context.Background()

	b, err := l.CreateBooking(ctx, Request{
		PondID: 1, Date: "2026-10-19", TimeSlotID: 1, OwnerID: "u-1",
		Identities: []string{"a", "b", "c", "d"},
	})
	require.NoError(t, err)
	require.Len(t, b.Seats, 4)
	assert.True(t, decimal.NewFromInt(40).Equal(b.TotalPrice))
	for i, s := range b.Seats {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, model.SeatAssigned, s.Status)
		assert.NotEmpty(t, s.Credential)
		assert.NotZero(t, s.ID)
	}

	_, err = l.CreateBooking(ctx, pondReq(1, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, "Square", domain.DetailsOf(err)["pond"])
	assert.Equal(t, []string{queue.BookingCreated}, rec.types())
}

func TestConcurrentBookingsNeverOverbook(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()

	var ok, full int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := pondReq(2, 1+i%2)
			req.OwnerID = fmt.Sprintf("u-%d", i)
			_, err := l.CreateBooking(ctx, req)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case domain.IsCapacityExceeded(err):
				atomic.AddInt32(&full, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	bookings, err := store.ListPondBookings(ctx, 2, "2026-10-19")
	require.NoError(t, err)
	seats := 0
	numbers := map[int]bool{}
	for _, b := range bookings {
		for _, s := range b.Seats {
			assert.False(t, numbers[s.Number], "seat %d booked twice", s.Number)
			numbers[s.Number] = true
			seats++
		}
	}
	assert.LessOrEqual(t, seats, 10)
	assert.Equal(t, int(ok), len(bookings))
	assert.Equal(t, int32(25), ok+full)
}

func TestSeatSelection(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	req := pondReq(2, 0)
	req.SeatNumbers = []int{2, 3}
	b, err := l.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Seats[0].Number)
	assert.Equal(t, 3, b.Seats[1].Number)

	req.SeatNumbers = []int{3}
	_, err = l.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidResource)

	req.SeatNumbers = []int{11}
	_, err = l.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req.SeatNumbers = []int{4, 4}
	_, err = l.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	b, err = l.CreateBooking(ctx, pondReq(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Seats[0].Number)
	assert.Equal(t, 4, b.Seats[1].Number)
	assert.Equal(t, "15.00", b.TotalPrice.StringFixed(2))
}

func TestPondBookingRules(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	past := pondReq(1, 1)
	past.Date = "2026-10-18"
	_, err := l.CreateBooking(ctx, past)
	assert.ErrorIs(t, err, domain.ErrTemporalViolation)

	_, err = l.CreateBooking(ctx, pondReq(3, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidResource)

	_, err = l.CreateBooking(ctx, pondReq(99, 1))
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)

	badSlot := pondReq(1, 1)
	badSlot.TimeSlotID = 42
	_, err = l.CreateBooking(ctx, badSlot)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)

	_, err = l.CreateBooking(ctx, pondReq(1, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// today's session is over once the slot has ended
	l.Now = func() time.Time { return time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC) }
	_, err = l.CreateBooking(ctx, pondReq(1, 1))
	assert.ErrorIs(t, err, domain.ErrTemporalViolation)
}

func TestEventRegistration(t *testing.T) {
	l, store, _ := setup(t)
	ctx := context.Background()
	req := Request{Type: model.BookingEvent, EventID: 10, Seats: 2, OwnerID: "u-1"}

	b, err := l.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), b.PondID)
	assert.Equal(t, "2026-10-25", b.Day)
	assert.Equal(t, "50.00", b.TotalPrice.StringFixed(2))
	assert.Equal(t, 1, b.Seats[0].Number)
	assert.Equal(t, 2, b.Seats[1].Number)

	// capacity counts participants, not seats
	_, err = l.CreateBooking(ctx, req)
	require.NoError(t, err)
	_, err = l.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	wrongPond := req
	wrongPond.PondID = 1
	_, err = l.CreateBooking(ctx, wrongPond)
	assert.ErrorIs(t, err, domain.ErrInvalidResource)

	ev, err := store.GetEvent(ctx, 10)
	require.NoError(t, err)

	notYet := *ev
	notYet.BookingOpensAt = now.Add(time.Hour)
	assert.ErrorIs(t, RegistrationOpen(&notYet, now, time.UTC), domain.ErrInvalidResource)

	closed := *ev
	closed.Status = model.EventClosed
	assert.ErrorIs(t, RegistrationOpen(&closed, now, time.UTC), domain.ErrInvalidResource)

	eventDay := *ev
	eventDay.Date = "2026-10-19"
	assert.ErrorIs(t, RegistrationOpen(&eventDay, now, time.UTC), domain.ErrInvalidResource)

	assert.NoError(t, RegistrationOpen(ev, now, time.UTC))
}

func TestDeleteBookingVoidsCheckInsAndRods(t *testing.T) {
	l, store, rec := setup(t)
	ctx := context.Background()

	b, err := l.CreateBooking(ctx, pondReq(1, 2))
	require.NoError(t, err)
	seat := b.Seats[0]

	require.NoError(t, store.CreateCheckIn(ctx, &model.CheckInRecord{
		ID: "ci-1", BookingID: b.ID, SeatID: seat.ID, SeatNumber: seat.Number, CheckInTime: now, ScannedBy: "op",
	}))
	_, err = store.IssueRod(ctx, seat.ID, now, func(_ *model.RodTag, latest int, checkedIn bool) (*model.RodTag, error) {
		require.True(t, checkedIn)
		return &model.RodTag{ID: "rod-1", Credential: "rod-cred", Version: latest + 1, BookingID: b.ID, IssuedAt: now}, nil
	})
	require.NoError(t, err)

	res, err := l.DeleteBooking(ctx, b.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoidedCheckIns)
	assert.Equal(t, 1, res.DeactivatedRod)

	ci, err := store.GetCheckIn(ctx, "ci-1")
	require.NoError(t, err)
	assert.Equal(t, model.CheckInVoided, ci.Status)

	tag, err := store.FindRodByCredential(ctx, "rod-cred")
	require.NoError(t, err)
	assert.False(t, tag.Active)

	_, err = l.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	_, err = l.DeleteBooking(ctx, b.ID, "admin")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)

	assert.Equal(t, []string{queue.BookingCreated, queue.BookingCancelled}, rec.types())
}
