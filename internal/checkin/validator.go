// Package checkin classifies scanned seat credentials and drives the
// per-seat check-in, check-out and no-show lifecycle.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/monitoring"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// DefaultEarlyGrace is how many minutes before the start of a session a
// seat may be checked in.
const DefaultEarlyGrace = 15

// Outcome classifies a scan.
type Outcome string

const (
	OutcomeValid            Outcome = "valid"
	OutcomeNotFound         Outcome = "notFound"
	OutcomeWrongDate        Outcome = "wrongDate"
	OutcomeWrongTime        Outcome = "wrongTime"
	OutcomeAlreadyCheckedIn Outcome = "alreadyCheckedIn"
	OutcomeNotCheckedIn     Outcome = "notCheckedIn"
)

// Window is the inclusive check-in window in minutes of day.
type Window struct {
	StartMin int    `json:"start_min"`
	EndMin   int    `json:"end_min"`
	Opens    string `json:"opens"`
	Closes   string `json:"closes"`
}

// Contains reports whether minute m falls inside the window.
func (w Window) Contains(m int) bool { return m >= w.StartMin && m <= w.EndMin }

// Result is what the operator sees after a scan.  Expected business
// conditions such as a wrong date are reported here rather than as
// errors.
type Result struct {
	Valid            bool                  `json:"valid"`
	Outcome          Outcome               `json:"outcome"`
	AlreadyCheckedIn bool                  `json:"already_checked_in"`
	Message          string                `json:"message"`
	Booking          *model.BookingSummary `json:"booking,omitempty"`
	ExpectedDate     string                `json:"expected_date,omitempty"`
	Today            string                `json:"today,omitempty"`
	Window           *Window               `json:"window,omitempty"`
	ActiveRecord     *model.CheckInRecord  `json:"active_record,omitempty"`

	seat    *model.Seat
	booking *model.Booking
}

// Seat returns the resolved seat, if any.
func (r *Result) Seat() *model.Seat { return r.seat }

// Details flattens the operator context for error reporting.
func (r *Result) Details() map[string]any {
	d := map[string]any{"outcome": string(r.Outcome)}
	if r.Booking != nil {
		d["booking_id"] = r.Booking.BookingID
		d["seat_number"] = r.Booking.SeatNumber
		if r.Booking.PondName != "" {
			d["pond"] = r.Booking.PondName
		}
		if r.Booking.EventName != "" {
			d["event"] = r.Booking.EventName
		}
	}
	if r.ExpectedDate != "" {
		d["expected_date"] = r.ExpectedDate
	}
	if r.Window != nil {
		d["window"] = r.Window.Opens + "-" + r.Window.Closes
	}
	return d
}

// ReadStore is the read side used to classify scans.
type ReadStore interface {
	FindSeatByCredential(ctx context.Context, cred string) (*model.Booking, *model.Seat, error)
	GetPond(ctx context.Context, id uint64) (*model.Pond, error)
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	GetTimeSlot(ctx context.Context, id uint64) (*model.TimeSlot, error)
	ActiveCheckIn(ctx context.Context, seatID uint64) (*model.CheckInRecord, error)
}

// Validator classifies seat credentials.  It never writes.
type Validator struct {
	store  ReadStore
	issuer *credential.Issuer

	Now        func() time.Time
	Loc        *time.Location
	EarlyGrace int
}

// NewValidator returns a Validator using the default early grace.
func NewValidator(store ReadStore, issuer *credential.Issuer, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{store: store, issuer: issuer, Now: time.Now, Loc: loc, EarlyGrace: DefaultEarlyGrace}
}

// ValidateForCheckIn applies, in order: resolution, date, time window and
// existing check-in.  Malformed credentials and rod credentials are
// returned as errors.
func (v *Validator) ValidateForCheckIn(ctx context.Context, cred, scanner string) (*Result, error) {
	res, err := v.resolve(ctx, cred)
	if err != nil {
		return nil, err
	}
	defer func() { monitoring.ScanOutcome("checkin", string(res.Outcome)) }()
	if res.Outcome == OutcomeNotFound {
		return res, nil
	}

	now := v.Now()
	res.Today = model.DayKey(now, v.Loc)
	if res.ExpectedDate != res.Today {
		res.Outcome = OutcomeWrongDate
		res.Message = fmt.Sprintf("booking is for %s, today is %s", res.ExpectedDate, res.Today)
		return res, nil
	}

	if m := model.MinuteOfDay(now, v.Loc); !res.Window.Contains(m) {
		res.Outcome = OutcomeWrongTime
		res.Message = fmt.Sprintf("check-in is open from %s to %s", res.Window.Opens, res.Window.Closes)
		return res, nil
	}

	active, err := v.active(ctx, res.seat.ID)
	if err != nil {
		return nil, err
	}
	res.Valid = true
	if active != nil {
		res.Outcome = OutcomeAlreadyCheckedIn
		res.AlreadyCheckedIn = true
		res.ActiveRecord = active
		res.Message = "seat is already checked in; use check-out instead"
		return res, nil
	}
	res.Outcome = OutcomeValid
	res.Message = "ready for check-in"
	return res, nil
}

// ValidateForCheckOut requires an open check-in for the seat.  Date and
// time are not checked, sessions may overrun.
func (v *Validator) ValidateForCheckOut(ctx context.Context, cred, scanner string) (*Result, error) {
	res, err := v.resolve(ctx, cred)
	if err != nil {
		return nil, err
	}
	defer func() { monitoring.ScanOutcome("checkout", string(res.Outcome)) }()
	if res.Outcome == OutcomeNotFound {
		return res, nil
	}
	res.Today = model.DayKey(v.Now(), v.Loc)
	active, err := v.active(ctx, res.seat.ID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		res.Outcome = OutcomeNotCheckedIn
		res.Message = "seat is not currently checked in"
		return res, nil
	}
	res.Valid = true
	res.Outcome = OutcomeValid
	res.ActiveRecord = active
	res.Message = "ready for check-out"
	return res, nil
}

// Resolve parses a seat credential and loads its booking without
// applying any rule.  A credential that parses but does not match a
// stored seat yields OutcomeNotFound.
func (v *Validator) Resolve(ctx context.Context, cred string) (*Result, error) {
	return v.resolve(ctx, cred)
}

func (v *Validator) resolve(ctx context.Context, cred string) (*Result, error) {
	claims, err := v.issuer.Parse(cred, credential.ClassSeat)
	if err != nil {
		return nil, err
	}
	notFound := &Result{Outcome: OutcomeNotFound, Message: "booking not found"}
	b, seat, err := v.store.FindSeatByCredential(ctx, cred)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound, nil
	}
	if err != nil {
		return nil, err
	}
	if b.ID != claims.BookingID || seat.Number != claims.SeatNumber {
		return notFound, nil
	}

	summary := b.Summarize(seat)
	res := &Result{Booking: &summary, ExpectedDate: b.Day, seat: seat, booking: b}
	if p, err := v.store.GetPond(ctx, b.PondID); err == nil {
		summary.PondName = p.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var start, end int
	switch b.Type {
	case model.BookingEvent:
		if b.EventID == nil {
			return notFound, nil
		}
		ev, err := v.store.GetEvent(ctx, *b.EventID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound, nil
		}
		if err != nil {
			return nil, err
		}
		summary.EventName = ev.Name
		start, end = ev.StartMin, ev.EndMin
	default:
		if b.TimeSlotID == nil {
			return notFound, nil
		}
		slot, err := v.store.GetTimeSlot(ctx, *b.TimeSlotID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound, nil
		}
		if err != nil {
			return nil, err
		}
		start, end = slot.StartMin, slot.EndMin
	}
	res.Window = v.window(start, end)
	return res, nil
}

func (v *Validator) window(start, end int) *Window {
	w := &Window{StartMin: start - v.EarlyGrace, EndMin: end}
	w.Opens = model.FormatMinute(w.StartMin)
	w.Closes = model.FormatMinute(w.EndMin)
	return w
}

func (v *Validator) active(ctx context.Context, seatID uint64) (*model.CheckInRecord, error) {
	rec, err := v.store.ActiveCheckIn(ctx, seatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}
