package rod

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/checkin"
	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/ledger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

type fixture struct {
	store  *repository.MemoryStore
	issuer *credential.Issuer
	sm     *checkin.StateMachine
	wf     *Workflow
	seat   string
	seat2  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }
	store := repository.NewMemoryStore()
	store.PutPond(model.Pond{
		ID: 1, Name: "North", Shape: model.ShapeCircle, Distribution: [4]int{6},
		BookingEnabled: true, PricePerSeat: decimal.NewFromInt(5),
	})
	slot, err := model.NewTimeSlot(1, "Morning", "09:00 - 12:00")
	require.NoError(t, err)
	store.PutTimeSlot(slot)

	iss, err := credential.NewIssuer("rod-test")
	require.NoError(t, err)
	l := ledger.New(store, iss, nil, nil, time.UTC)
	l.Now = clock
	b, err := l.CreateBooking(context.Background(), ledger.Request{PondID: 1, Date: "2026-10-19", TimeSlotID: 1, Seats: 2, OwnerID: "owner"})
	require.NoError(t, err)

	v := checkin.NewValidator(store, iss, time.UTC)
	v.Now = clock
	return &fixture{
		store:  store,
		issuer: iss,
		sm:     checkin.NewStateMachine(store, v, nil, nil),
		wf:     NewWorkflow(store, iss, v, nil, nil),
		seat:   b.Seats[0].Credential,
		seat2:  b.Seats[1].Credential,
	}
}

func TestIssueRequiresCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wf.IssueRod(ctx, f.seat, "station-1", false, "op")
	assert.ErrorIs(t, err, ErrNotCheckedIn)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReplacementMonotonicity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.sm.CheckIn(ctx, f.seat, "op", "")
	require.NoError(t, err)

	first, err := f.wf.IssueRod(ctx, f.seat, "station-1", false, "op")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	_, err = f.wf.IssueRod(ctx, f.seat, "station-1", false, "op")
	assert.ErrorIs(t, err, ErrAlreadyIssued)

	second, err := f.wf.IssueRod(ctx, f.seat, "station-2", true, "op")
	require.NoError(t, err)
	third, err := f.wf.IssueRod(ctx, f.seat, "station-2", true, "op")
	require.NoError(t, err)
	assert.Equal(t, 3, third.Version)

	tags, err := f.wf.History(ctx, f.seat)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	active := 0
	for _, tag := range tags {
		if tag.Active {
			active++
			assert.Equal(t, 3, tag.Version)
		}
	}
	assert.Equal(t, 1, active)

	for _, old := range []*model.RodTag{first, second} {
		_, err := f.wf.ValidateRod(ctx, old.Credential)
		assert.ErrorIs(t, err, ErrRodInactive)
	}
	v, err := f.wf.ValidateRod(ctx, third.Credential)
	require.NoError(t, err)
	assert.Equal(t, "North", v.Booking.PondName)
	assert.Equal(t, 1, v.Seat.Number)
}

func TestConcurrentReplacementsLeaveOneActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.sm.CheckIn(ctx, f.seat, "op", "")
	require.NoError(t, err)
	_, err = f.wf.IssueRod(ctx, f.seat, "s", false, "op")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wf.IssueRod(ctx, f.seat, "s", true, "op")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tags, err := f.wf.History(ctx, f.seat)
	require.NoError(t, err)
	require.Len(t, tags, 11)
	active := 0
	for i, tag := range tags {
		assert.Equal(t, i+1, tag.Version)
		if tag.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestCredentialClassesAreSeparate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.sm.CheckIn(ctx, f.seat, "op", "")
	require.NoError(t, err)
	tag, err := f.wf.IssueRod(ctx, f.seat, "s", false, "op")
	require.NoError(t, err)

	_, err = f.wf.ValidateRod(ctx, f.seat)
	assert.ErrorIs(t, err, credential.ErrWrongClass)

	_, err = f.wf.IssueRod(ctx, tag.Credential, "s", true, "op")
	assert.ErrorIs(t, err, credential.ErrWrongClass)

	_, _, err = f.sm.CheckIn(ctx, tag.Credential, "op", "")
	assert.ErrorIs(t, err, credential.ErrWrongClass)

	ghost, err := f.issuer.IssueRod("ghost", 1, 1)
	require.NoError(t, err)
	_, err = f.wf.ValidateRod(ctx, ghost)
	assert.ErrorIs(t, err, ErrRodNotFound)
}

func TestCheckOutKeepsTagUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, _, err := f.sm.CheckIn(ctx, f.seat2, "op", "")
	require.NoError(t, err)
	tag, err := f.wf.IssueRod(ctx, f.seat2, "s", false, "op")
	require.NoError(t, err)

	_, err = f.sm.CheckOut(ctx, rec.ID, "op")
	require.NoError(t, err)
	// a checked-out seat cannot get a replacement
	_, err = f.wf.IssueRod(ctx, f.seat2, "s", true, "op")
	assert.ErrorIs(t, err, ErrNotCheckedIn)

	_, err = f.wf.ValidateRod(ctx, tag.Credential)
	assert.NoError(t, err)
}
