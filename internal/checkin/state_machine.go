package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/monitoring"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// Store is the persistence the state machine needs.
type Store interface {
	ReadStore
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	GetCheckIn(ctx context.Context, id string) (*model.CheckInRecord, error)
	ListCheckIns(ctx context.Context, bookingID string) ([]model.CheckInRecord, error)
	CreateCheckIn(ctx context.Context, rec *model.CheckInRecord) error
	CloseCheckIn(ctx context.Context, id, by string, at time.Time) (*model.CheckInRecord, error)
	MarkNoShow(ctx context.Context, rec *model.CheckInRecord) (*model.CheckInRecord, bool, error)
}

// StateMachine is the only writer of check-in records and seat status.
// Records are never deleted.
type StateMachine struct {
	store     Store
	validator *Validator
	events    queue.Publisher
	log       *logger.Logger
}

// NewStateMachine returns a StateMachine that shares the validator's
// clock.
func NewStateMachine(store Store, validator *Validator, events queue.Publisher, log *logger.Logger) *StateMachine {
	if events == nil {
		events = queue.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StateMachine{store: store, validator: validator, events: events, log: log}
}

func (m *StateMachine) now() time.Time { return m.validator.Now().UTC() }

// CheckIn validates cred and opens a check-in for its seat.  The
// validation result is returned alongside any rejection so operators can
// see why.
func (m *StateMachine) CheckIn(ctx context.Context, cred, scanner, notes string) (*model.CheckInRecord, *Result, error) {
	const op = "checkin.CheckIn"
	res, err := m.validator.ValidateForCheckIn(ctx, cred, scanner)
	if err != nil {
		return nil, nil, err
	}
	if err := rejection(op, res); err != nil {
		return nil, res, err
	}
	seat := res.Seat()
	rec := &model.CheckInRecord{
		ID:          uuid.NewString(),
		BookingID:   res.Booking.BookingID,
		SeatID:      seat.ID,
		SeatNumber:  seat.Number,
		CheckInTime: m.now(),
		ScannedBy:   scanner,
	}
	if notes != "" {
		rec.Notes = &notes
	}

	start := time.Now()
	err = m.store.CreateCheckIn(ctx, rec)
	monitoring.ObserveStore("create_checkin", start)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, res, domain.New(domain.ErrAlreadyProcessed, op, "seat is already checked in").With("booking_id", rec.BookingID).With("seat_number", rec.SeatNumber)
	case errors.Is(err, repository.ErrStaleState):
		return nil, res, domain.New(domain.ErrInvalidState, op, "seat was marked as no-show").With("booking_id", rec.BookingID).With("seat_number", rec.SeatNumber)
	case errors.Is(err, repository.ErrNotFound):
		return nil, res, domain.New(domain.ErrResourceNotFound, op, "seat no longer exists")
	case err != nil:
		return nil, res, fmt.Errorf("%s: %w", op, err)
	}

	monitoring.SeatTransition(string(model.SeatCheckedIn))
	m.log.Info("CHECKIN", fmt.Sprintf("booking %s seat %d checked in by %s", rec.BookingID, rec.SeatNumber, scanner))
	m.publish(ctx, queue.SeatCheckedIn, rec, scanner)
	return rec, res, nil
}

// rejection turns a negative validation result into a domain error.
func rejection(op string, res *Result) error {
	var e *domain.Error
	switch {
	case res.Outcome == OutcomeNotFound:
		e = domain.New(domain.ErrResourceNotFound, op, res.Message)
	case res.Outcome == OutcomeWrongDate || res.Outcome == OutcomeWrongTime:
		e = domain.New(domain.ErrTemporalViolation, op, res.Message)
	case res.Outcome == OutcomeNotCheckedIn:
		e = domain.New(domain.ErrInvalidState, op, res.Message)
	case res.AlreadyCheckedIn:
		e = domain.New(domain.ErrAlreadyProcessed, op, res.Message)
	default:
		return nil
	}
	e.Details = res.Details()
	return e
}

// CheckOut closes an open check-in record.
func (m *StateMachine) CheckOut(ctx context.Context, recordID, scanner string) (*model.CheckInRecord, error) {
	const op = "checkin.CheckOut"
	rec, err := m.store.CloseCheckIn(ctx, recordID, scanner, m.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, domain.New(domain.ErrResourceNotFound, op, "check-in record not found").With("record_id", recordID)
	case errors.Is(err, repository.ErrConflict):
		return nil, domain.New(domain.ErrAlreadyProcessed, op, "seat is already checked out").With("record_id", recordID)
	case errors.Is(err, repository.ErrStaleState):
		status := ""
		if rec != nil {
			status = string(rec.Status)
		}
		return nil, domain.New(domain.ErrInvalidState, op, "record is not checked in").With("record_id", recordID).With("status", status)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	monitoring.SeatTransition(string(model.SeatCheckedOut))
	m.log.Info("CHECKIN", fmt.Sprintf("booking %s seat %d checked out by %s", rec.BookingID, rec.SeatNumber, scanner))
	m.publish(ctx, queue.SeatCheckedOut, rec, scanner)
	return rec, nil
}

// CheckOutByCredential resolves the open record of a seat credential and
// checks it out.
func (m *StateMachine) CheckOutByCredential(ctx context.Context, cred, scanner string) (*model.CheckInRecord, *Result, error) {
	const op = "checkin.CheckOutByCredential"
	res, err := m.validator.ValidateForCheckOut(ctx, cred, scanner)
	if err != nil {
		return nil, nil, err
	}
	if err := rejection(op, res); err != nil {
		return nil, res, err
	}
	rec, err := m.CheckOut(ctx, res.ActiveRecord.ID, scanner)
	return rec, res, err
}

// MarkNoShow records that a seat holder never arrived.  Marking the same
// seat again returns the existing record.  Seats that were checked in
// cannot become no-shows.
func (m *StateMachine) MarkNoShow(ctx context.Context, bookingID string, seatNumber int, operator string) (*model.CheckInRecord, error) {
	const op = "checkin.MarkNoShow"
	b, err := m.store.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.New(domain.ErrResourceNotFound, op, "booking not found").With("booking_id", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	seat := b.SeatByNumber(seatNumber)
	if seat == nil {
		return nil, domain.New(domain.ErrResourceNotFound, op, fmt.Sprintf("seat %d not found", seatNumber)).With("booking_id", bookingID)
	}
	return m.markNoShow(ctx, op, b, seat, operator)
}

func (m *StateMachine) markNoShow(ctx context.Context, op string, b *model.Booking, seat *model.Seat, operator string) (*model.CheckInRecord, error) {
	rec := &model.CheckInRecord{
		ID:          uuid.NewString(),
		BookingID:   b.ID,
		SeatID:      seat.ID,
		SeatNumber:  seat.Number,
		CheckInTime: m.now(),
		ScannedBy:   operator,
	}
	out, created, err := m.store.MarkNoShow(ctx, rec)
	switch {
	case errors.Is(err, repository.ErrStaleState):
		return nil, domain.New(domain.ErrInvalidState, op, "seat was already checked in").
			With("booking_id", b.ID).With("seat_number", seat.Number)
	case errors.Is(err, repository.ErrNotFound):
		return nil, domain.New(domain.ErrResourceNotFound, op, "seat no longer exists")
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if created {
		monitoring.SeatTransition(string(model.SeatNoShow))
		m.log.Info("CHECKIN", fmt.Sprintf("booking %s seat %d marked no-show by %s", b.ID, seat.Number, operator))
		m.publish(ctx, queue.SeatNoShow, out, operator)
	}
	return out, nil
}

// MarkBookingNoShow marks every seat of a booking that was never checked
// in.  Seats that were checked in are left alone.
func (m *StateMachine) MarkBookingNoShow(ctx context.Context, bookingID, operator string) ([]model.CheckInRecord, error) {
	const op = "checkin.MarkBookingNoShow"
	b, err := m.store.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.New(domain.ErrResourceNotFound, op, "booking not found").With("booking_id", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var out []model.CheckInRecord
	for i := range b.Seats {
		seat := &b.Seats[i]
		if seat.Status == model.SeatCheckedIn || seat.Status == model.SeatCheckedOut {
			continue
		}
		rec, err := m.markNoShow(ctx, op, b, seat, operator)
		if errors.Is(err, domain.ErrInvalidState) {
			// checked in since the booking was read
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// History returns every check-in record of a booking, oldest first.
func (m *StateMachine) History(ctx context.Context, bookingID string) ([]model.CheckInRecord, error) {
	recs, err := m.store.ListCheckIns(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("checkin.History: %w", err)
	}
	if len(recs) == 0 {
		if _, err := m.store.GetBooking(ctx, bookingID); errors.Is(err, repository.ErrNotFound) {
			return nil, domain.New(domain.ErrResourceNotFound, "checkin.History", "booking not found").With("booking_id", bookingID)
		}
	}
	return recs, nil
}

func (m *StateMachine) publish(ctx context.Context, typ string, rec *model.CheckInRecord, actor string) {
	ev := queue.Event{
		Type:       typ,
		BookingID:  rec.BookingID,
		SeatNumber: rec.SeatNumber,
		Actor:      actor,
		OccurredAt: m.now(),
		Attributes: map[string]string{"record_id": rec.ID, "status": string(rec.Status)},
	}
	if err := m.events.Publish(ctx, ev); err != nil {
		m.log.Warn("CHECKIN", fmt.Sprintf("publish %s: %v", typ, err))
	}
}
