// Package availability answers how many seats remain for a pond session or
// an event.  It never mutates state; the ledger calls the pure helpers
// inside its own atomic unit when admitting a booking.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// Availability is the capacity snapshot for one pond session or event.
type Availability struct {
	PondID     uint64  `json:"pond_id,omitempty"`
	EventID    uint64  `json:"event_id,omitempty"`
	Date       string  `json:"date,omitempty"`
	TimeSlotID *uint64 `json:"time_slot_id,omitempty"`
	Total      int     `json:"total"`
	Booked     int     `json:"booked"`
	Available  int     `json:"available"`
	// Taken lists the seat numbers already booked for a pond session.
	Taken []int `json:"taken,omitempty"`
}

// SlotAvailability pairs a time slot with its availability.
type SlotAvailability struct {
	Slot model.TimeSlot `json:"slot"`
	Availability
}

// Store is the read side the calculator needs.
type Store interface {
	GetPond(ctx context.Context, id uint64) (*model.Pond, error)
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	GetTimeSlot(ctx context.Context, id uint64) (*model.TimeSlot, error)
	ListTimeSlots(ctx context.Context) ([]model.TimeSlot, error)
	ListPondBookings(ctx context.Context, pondID uint64, day string) ([]model.Booking, error)
	ListEventBookings(ctx context.Context, eventID uint64) ([]model.Booking, error)
}

// ForPond computes availability for (pond, day, slot) from the supplied
// bookings.  Bookings for other ponds, days, slots or for events are
// ignored, so callers may pass a superset.
func ForPond(p model.Pond, bookings []model.Booking, day string, slotID uint64) Availability {
	sid := slotID
	a := Availability{PondID: p.ID, Date: day, TimeSlotID: &sid, Total: p.SeatTotal()}
	for _, b := range bookings {
		if b.Type != model.BookingPond || b.PondID != p.ID || b.Day != day {
			continue
		}
		if b.TimeSlotID == nil || *b.TimeSlotID != slotID {
			continue
		}
		a.Booked += len(b.Seats)
		for _, s := range b.Seats {
			a.Taken = append(a.Taken, s.Number)
		}
	}
	a.Available = max(a.Total-a.Booked, 0)
	return a
}

// ForEvent computes event availability.  Event capacity counts
// participants, i.e. bookings, not seats.
func ForEvent(e model.Event, bookings []model.Booking) Availability {
	a := Availability{EventID: e.ID, Date: e.Date, Total: e.MaxParticipants}
	for _, b := range bookings {
		if b.Type == model.BookingEvent && b.EventID != nil && *b.EventID == e.ID {
			a.Booked++
		}
	}
	a.Available = max(a.Total-a.Booked, 0)
	return a
}

// Calculator reads bookings from a Store.
type Calculator struct {
	Store Store
	Loc   *time.Location
}

// NewCalculator returns a Calculator bound to store.  Dates given as
// timestamps are normalised to day keys in loc.
func NewCalculator(store Store, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{Store: store, Loc: loc}
}

// PondSeats returns availability for one pond session.
func (c *Calculator) PondSeats(ctx context.Context, pondID uint64, date string, timeSlotID uint64) (Availability, error) {
	const op = "availability.PondSeats"
	day, err := model.ParseDay(date, c.Loc)
	if err != nil {
		return Availability{}, domain.Wrap(domain.ErrInvalidInput, op, err)
	}
	p, err := c.Store.GetPond(ctx, pondID)
	if err != nil {
		return Availability{}, notFound(op, "pond", pondID, err)
	}
	if _, err := c.Store.GetTimeSlot(ctx, timeSlotID); err != nil {
		return Availability{}, notFound(op, "time slot", timeSlotID, err)
	}
	bookings, err := c.Store.ListPondBookings(ctx, pondID, day)
	if err != nil {
		return Availability{}, fmt.Errorf("%s: %w", op, err)
	}
	return ForPond(*p, bookings, day, timeSlotID), nil
}

// PondSlots returns availability for every time slot of a pond day.
func (c *Calculator) PondSlots(ctx context.Context, pondID uint64, date string) ([]SlotAvailability, error) {
	const op = "availability.PondSlots"
	day, err := model.ParseDay(date, c.Loc)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInvalidInput, op, err)
	}
	p, err := c.Store.GetPond(ctx, pondID)
	if err != nil {
		return nil, notFound(op, "pond", pondID, err)
	}
	slots, err := c.Store.ListTimeSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	bookings, err := c.Store.ListPondBookings(ctx, pondID, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotAvailability{Slot: s, Availability: ForPond(*p, bookings, day, s.ID)})
	}
	return out, nil
}

// EventSeats returns participant availability for an event.
func (c *Calculator) EventSeats(ctx context.Context, eventID uint64) (Availability, error) {
	const op = "availability.EventSeats"
	e, err := c.Store.GetEvent(ctx, eventID)
	if err != nil {
		return Availability{}, notFound(op, "event", eventID, err)
	}
	bookings, err := c.Store.ListEventBookings(ctx, eventID)
	if err != nil {
		return Availability{}, fmt.Errorf("%s: %w", op, err)
	}
	return ForEvent(*e, bookings), nil
}

func notFound(op, what string, id uint64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.New(domain.ErrResourceNotFound, op, fmt.Sprintf("%s %d not found", what, id))
	}
	return fmt.Errorf("%s: %w", op, err)
}
