// Package sharing hands booked seats to other people before the session.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/monitoring"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// Store is the persistence the service needs.
type Store interface {
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	GetTimeSlot(ctx context.Context, id uint64) (*model.TimeSlot, error)
	AssignSeat(ctx context.Context, bookingID string, seatNumber int, mutate repository.SeatMutator) (*model.Seat, error)
}

// Service reassigns seat holders.  The seat credential never changes; the
// new holder is told about it out of band.
type Service struct {
	store  Store
	events queue.Publisher
	log    *logger.Logger

	Now func() time.Time
	Loc *time.Location
}

// New returns a sharing Service.
func New(store Store, events queue.Publisher, log *logger.Logger, loc *time.Location) *Service {
	if events == nil {
		events = queue.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, events: events, log: log, Now: time.Now, Loc: loc}
}

// AssignSeat binds target to a seat.  Seats that were ever checked in,
// and seats of sessions that have already ended, cannot be reassigned.
func (s *Service) AssignSeat(ctx context.Context, bookingID string, seatNumber int, target, actor string) (*model.Seat, error) {
	const op = "sharing.AssignSeat"
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, domain.New(domain.ErrInvalidInput, op, "target identity is required")
	}
	b, err := s.store.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.New(domain.ErrResourceNotFound, op, "booking not found").With("booking_id", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.Now()
	if err := s.sessionOpen(ctx, op, b, now); err != nil {
		return nil, err
	}

	seat, err := s.store.AssignSeat(ctx, bookingID, seatNumber, func(seat *model.Seat) error {
		if !seat.Status.Reassignable() {
			return domain.New(domain.ErrInvalidState, op, "seat can no longer be reassigned").
				With("booking_id", bookingID).With("seat_number", seatNumber).With("status", string(seat.Status))
		}
		at := now.UTC()
		seat.AssignedIdentity = &target
		seat.AssignedBy = &actor
		seat.AssignedAt = &at
		seat.Status = model.SeatAssigned
		return nil
	})
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return nil, de
	case errors.Is(err, repository.ErrNotFound):
		return nil, domain.New(domain.ErrResourceNotFound, op, fmt.Sprintf("seat %d not found", seatNumber)).With("booking_id", bookingID)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	monitoring.SeatTransition(string(model.SeatAssigned))
	s.log.Info("SHARING", fmt.Sprintf("booking %s seat %d assigned to %s by %s", bookingID, seatNumber, target, actor))
	if err := s.events.Publish(ctx, queue.Event{
		Type: queue.SeatAssigned, BookingID: bookingID, SeatNumber: seatNumber, Actor: actor,
		OccurredAt: now.UTC(), Attributes: map[string]string{"assignee": target},
	}); err != nil {
		s.log.Warn("SHARING", fmt.Sprintf("publish %s: %v", queue.SeatAssigned, err))
	}
	return seat, nil
}

// sessionOpen rejects assignments once the booked session is over.
func (s *Service) sessionOpen(ctx context.Context, op string, b *model.Booking, now time.Time) error {
	today := model.DayKey(now, s.Loc)
	if b.Day > today {
		return nil
	}
	ended := domain.New(domain.ErrTemporalViolation, op, "session has ended").With("booking_id", b.ID).With("date", b.Day)
	if b.Day < today {
		return ended
	}
	end := 24 * 60
	switch {
	case b.EventID != nil:
		if ev, err := s.store.GetEvent(ctx, *b.EventID); err == nil {
			end = ev.EndMin
		}
	case b.TimeSlotID != nil:
		if slot, err := s.store.GetTimeSlot(ctx, *b.TimeSlotID); err == nil {
			end = slot.EndMin
		}
	}
	if model.MinuteOfDay(now, s.Loc) > end {
		return ended
	}
	return nil
}
