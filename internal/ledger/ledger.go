// Package ledger creates and cancels bookings.  It is the only writer of
// bookings and seats; capacity is re-checked inside the store's atomic
// unit so concurrent requests can never overbook a pond session or an
// event.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/pond-seat-booking/internal/availability"
	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/layout"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/monitoring"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// Store is the persistence the ledger needs.
type Store interface {
	availability.Store
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	CreateBooking(ctx context.Context, b *model.Booking, admit repository.AdmitFunc) error
	DeleteBooking(ctx context.Context, id string, at time.Time) (*repository.CancelResult, error)
}

// Request describes a booking to create.
//
// The number of seats is len(SeatNumbers) when seat numbers are given,
// otherwise Seats, otherwise len(Identities).  Identities optionally
// pre-assigns holders to the seats in order.
type Request struct {
	Type        model.BookingType `json:"type"`
	PondID      uint64            `json:"pond_id"`
	EventID     uint64            `json:"event_id"`
	Date        string            `json:"date"`
	TimeSlotID  uint64            `json:"time_slot_id"`
	Seats       int               `json:"seats"`
	SeatNumbers []int             `json:"seat_numbers"`
	Identities  []string          `json:"identities"`
	OwnerID     string            `json:"-"`
}

func (r Request) seatCount() int {
	switch {
	case len(r.SeatNumbers) > 0:
		return len(r.SeatNumbers)
	case r.Seats > 0:
		return r.Seats
	default:
		return len(r.Identities)
	}
}

// Ledger creates, reads and cancels bookings.
type Ledger struct {
	store  Store
	issuer *credential.Issuer
	events queue.Publisher
	log    *logger.Logger

	Now func() time.Time
	Loc *time.Location
}

// New returns a Ledger.  events and log may be nil.
func New(store Store, issuer *credential.Issuer, events queue.Publisher, log *logger.Logger, loc *time.Location) *Ledger {
	if events == nil {
		events = queue.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{store: store, issuer: issuer, events: events, log: log, Now: time.Now, Loc: loc}
}

// CreateBooking validates req and stores the booking with one credential
// per seat.
func (l *Ledger) CreateBooking(ctx context.Context, req Request) (*model.Booking, error) {
	const op = "ledger.CreateBooking"
	n := req.seatCount()
	if n < 1 {
		return nil, domain.New(domain.ErrInvalidInput, op, "at least one seat is required")
	}
	if len(req.Identities) > n {
		return nil, domain.New(domain.ErrInvalidInput, op, "more identities than seats")
	}
	if req.OwnerID == "" {
		return nil, domain.New(domain.ErrInvalidInput, op, "owner is required")
	}

	var (
		b   *model.Booking
		err error
	)
	switch req.Type {
	case model.BookingPond, "":
		b, err = l.createPondBooking(ctx, req, n)
	case model.BookingEvent:
		b, err = l.createEventBooking(ctx, req, n)
	default:
		err = domain.New(domain.ErrInvalidInput, op, fmt.Sprintf("unknown booking type %q", req.Type))
	}
	if err != nil {
		kind := req.Type
		if kind == "" {
			kind = model.BookingPond
		}
		monitoring.BookingRejected(string(kind), string(domain.KindOf(err)))
		return nil, err
	}

	monitoring.BookingCreated(string(b.Type))
	l.log.Info("LEDGER", fmt.Sprintf("booking %s created: %s pond=%d day=%s seats=%d", b.ID, b.Type, b.PondID, b.Day, len(b.Seats)))
	l.publish(ctx, queue.Event{
		Type:       queue.BookingCreated,
		BookingID:  b.ID,
		Actor:      b.OwnerID,
		OccurredAt: b.CreatedAt,
		Attributes: map[string]string{
			"type":  string(b.Type),
			"pond":  strconv.FormatUint(b.PondID, 10),
			"date":  b.Day,
			"seats": strconv.Itoa(len(b.Seats)),
			"total": b.TotalPrice.StringFixed(2),
		},
	})
	return b, nil
}

func (l *Ledger) createPondBooking(ctx context.Context, req Request, n int) (*model.Booking, error) {
	const op = "ledger.CreateBooking"
	pond, err := l.store.GetPond(ctx, req.PondID)
	if err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("pond %d not found", req.PondID))
	}
	if !pond.BookingEnabled {
		return nil, domain.New(domain.ErrInvalidResource, op, "pond is not open for booking").With("pond", pond.Name)
	}
	slot, err := l.store.GetTimeSlot(ctx, req.TimeSlotID)
	if err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("time slot %d not found", req.TimeSlotID))
	}
	day, err := model.ParseDay(req.Date, l.Loc)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidInput, op, err)
	}
	now := l.Now()
	today := model.DayKey(now, l.Loc)
	if day < today {
		return nil, domain.New(domain.ErrTemporalViolation, op, "cannot book a past date").
			With("date", day).With("today", today)
	}
	if day == today && model.MinuteOfDay(now, l.Loc) > slot.EndMin {
		return nil, domain.New(domain.ErrTemporalViolation, op, "session has already ended").
			With("date", day).With("window", slot.Range)
	}

	slotID := slot.ID
	b := l.newBooking(model.BookingPond, pond.ID, day, req, n, now)
	b.TimeSlotID = &slotID
	b.TotalPrice = pond.PricePerSeat.Mul(decimal.NewFromInt(int64(n)))

	allowed := seatNumbers(*pond)
	err = l.store.CreateBooking(ctx, b, func(existing []model.Booking) error {
		avail := availability.ForPond(*pond, existing, day, slotID)
		if n > avail.Available {
			return domain.New(domain.ErrCapacityExceeded, op,
				fmt.Sprintf("requested %d seats, %d available", n, avail.Available)).
				With("pond", pond.Name).With("date", day).With("available", avail.Available).With("requested", n)
		}
		taken := make(map[int]bool, len(avail.Taken))
		for _, t := range avail.Taken {
			taken[t] = true
		}
		numbers, err := pickSeats(op, req.SeatNumbers, n, allowed, taken)
		if err != nil {
			return err
		}
		return l.fillSeats(b, numbers, req.Identities)
	})
	if err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("pond %d not found", req.PondID))
	}
	return b, nil
}

func (l *Ledger) createEventBooking(ctx context.Context, req Request, n int) (*model.Booking, error) {
	const op = "ledger.CreateBooking"
	ev, err := l.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("event %d not found", req.EventID))
	}
	now := l.Now()
	if err := RegistrationOpen(ev, now, l.Loc); err != nil {
		return nil, err
	}
	pondID := req.PondID
	if pondID == 0 && len(ev.PondIDs) == 1 {
		pondID = ev.PondIDs[0]
	}
	if !ev.HasPond(pondID) {
		return nil, domain.New(domain.ErrInvalidResource, op, "pond is not part of this event").
			With("event", ev.Name).With("pond_id", pondID)
	}
	if _, err := l.store.GetPond(ctx, pondID); err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("pond %d not found", pondID))
	}

	eventID := ev.ID
	b := l.newBooking(model.BookingEvent, pondID, ev.Date, req, n, now)
	b.EventID = &eventID
	b.TotalPrice = ev.EntryFee.Mul(decimal.NewFromInt(int64(n)))

	err = l.store.CreateBooking(ctx, b, func(existing []model.Booking) error {
		avail := availability.ForEvent(*ev, existing)
		if avail.Available < 1 {
			return domain.New(domain.ErrCapacityExceeded, op, "event is full").
				With("event", ev.Name).With("max_participants", ev.MaxParticipants)
		}
		numbers := make([]int, n)
		for i := range numbers {
			numbers[i] = i + 1
		}
		return l.fillSeats(b, numbers, req.Identities)
	})
	if err != nil {
		return nil, storeErr(op, err, fmt.Sprintf("event %d not found", req.EventID))
	}
	return b, nil
}

// RegistrationOpen reports whether an event accepts new registrations at
// now, apart from its participant limit which is checked atomically.
func RegistrationOpen(ev *model.Event, now time.Time, loc *time.Location) error {
	const op = "ledger.CreateBooking"
	switch {
	case ev.Status != model.EventOpen:
		return domain.New(domain.ErrInvalidResource, op, "event is not open for registration").
			With("event", ev.Name).With("status", string(ev.Status))
	case now.Before(ev.BookingOpensAt):
		return domain.New(domain.ErrInvalidResource, op, "registration has not opened yet").
			With("event", ev.Name).With("opens_at", ev.BookingOpensAt.In(loc).Format(time.RFC3339))
	case model.DayKey(now, loc) >= ev.Date:
		return domain.New(domain.ErrInvalidResource, op, "registration has closed").
			With("event", ev.Name).With("date", ev.Date)
	}
	return nil
}

func (l *Ledger) newBooking(typ model.BookingType, pondID uint64, day string, req Request, n int, now time.Time) *model.Booking {
	return &model.Booking{
		ID:        uuid.NewString(),
		Type:      typ,
		PondID:    pondID,
		Day:       day,
		Seats:     make([]model.Seat, n),
		OwnerID:   req.OwnerID,
		CreatedAt: now.UTC(),
	}
}

// fillSeats numbers the seats, issues their credentials and applies the
// optional identities.
func (l *Ledger) fillSeats(b *model.Booking, numbers []int, identities []string) error {
	now := b.CreatedAt
	for i := range b.Seats {
		cred, err := l.issuer.IssueSeat(b.ID, numbers[i])
		if err != nil {
			return err
		}
		seat := model.Seat{BookingID: b.ID, Number: numbers[i], Credential: cred, Status: model.SeatUnassigned}
		if i < len(identities) && identities[i] != "" {
			who, by, at := identities[i], b.OwnerID, now
			seat.AssignedIdentity, seat.AssignedBy, seat.AssignedAt = &who, &by, &at
			seat.Status = model.SeatAssigned
		}
		b.Seats[i] = seat
	}
	return nil
}

// seatNumbers returns the numbers a pond renders.  Ponds without a
// distribution fall back to 1..SeatTotal.
func seatNumbers(p model.Pond) map[int]struct{} {
	nums := layout.Numbers(p)
	if len(nums) == 0 {
		for i := 1; i <= p.SeatTotal(); i++ {
			nums[i] = struct{}{}
		}
	}
	return nums
}

// pickSeats validates requested seat numbers or allocates the lowest free
// ones.
func pickSeats(op string, requested []int, n int, allowed map[int]struct{}, taken map[int]bool) ([]int, error) {
	if len(requested) > 0 {
		seen := make(map[int]bool, len(requested))
		for _, num := range requested {
			if _, ok := allowed[num]; !ok {
				return nil, domain.New(domain.ErrInvalidInput, op, fmt.Sprintf("seat %d does not exist", num)).With("seat", num)
			}
			if seen[num] {
				return nil, domain.New(domain.ErrInvalidInput, op, fmt.Sprintf("seat %d requested twice", num)).With("seat", num)
			}
			if taken[num] {
				return nil, domain.New(domain.ErrInvalidResource, op, fmt.Sprintf("seat %d is already booked", num)).With("seat", num)
			}
			seen[num] = true
		}
		return append([]int(nil), requested...), nil
	}
	free := make([]int, 0, len(allowed))
	for num := range allowed {
		if !taken[num] {
			free = append(free, num)
		}
	}
	sort.Ints(free)
	if len(free) < n {
		return nil, domain.New(domain.ErrCapacityExceeded, "", fmt.Sprintf("requested %d seats, %d free", n, len(free)))
	}
	return free[:n], nil
}

// GetBooking returns a booking with its seats.
func (l *Ledger) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr("ledger.GetBooking", err, "booking not found")
	}
	return b, nil
}

// DeleteBooking cancels a booking.  Open check-ins of its seats are voided
// and active rod tags retired in the same atomic unit.
func (l *Ledger) DeleteBooking(ctx context.Context, id, actor string) (*repository.CancelResult, error) {
	const op = "ledger.DeleteBooking"
	res, err := l.store.DeleteBooking(ctx, id, l.Now().UTC())
	if err != nil {
		return nil, storeErr(op, err, "booking not found")
	}
	monitoring.BookingCancelled()
	l.log.Info("LEDGER", fmt.Sprintf("booking %s cancelled by %s: %d check-ins voided, %d rods retired",
		id, actor, res.VoidedCheckIns, res.DeactivatedRod))
	l.publish(ctx, queue.Event{
		Type:       queue.BookingCancelled,
		BookingID:  id,
		Actor:      actor,
		OccurredAt: l.Now().UTC(),
		Attributes: map[string]string{
			"voided_checkins": strconv.Itoa(res.VoidedCheckIns),
			"retired_rods":    strconv.Itoa(res.DeactivatedRod),
		},
	})
	return res, nil
}

func (l *Ledger) publish(ctx context.Context, ev queue.Event) {
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn("LEDGER", fmt.Sprintf("publish %s: %v", ev.Type, err))
	}
}

// storeErr passes domain errors through and maps storage sentinels.
func storeErr(op string, err error, notFoundMsg string) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		if de.Op == "" {
			de.Op = op
		}
		return de
	case errors.Is(err, repository.ErrNotFound):
		return domain.New(domain.ErrResourceNotFound, op, notFoundMsg)
	case errors.Is(err, repository.ErrConflict):
		return domain.Wrap(domain.ErrAlreadyProcessed, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
