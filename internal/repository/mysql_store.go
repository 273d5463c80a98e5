package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// MySQLStore composes the table repositories into the atomic operations
// the services rely on.  Every write runs in a single transaction that
// first locks the row all competing writers must pass through: the pond
// or event for bookings, the seat for check-ins, no-shows, rod tags and
// assignments.
type MySQLStore struct {
	db       *sql.DB
	Ponds    *PondRepo
	Events   *EventRepo
	Bookings *BookingRepo
	CheckIns *CheckInRepo
	Rods     *RodRepo
}

// NewMySQLStore wires the repositories around db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:       db,
		Ponds:    NewPondRepo(db),
		Events:   NewEventRepo(db),
		Bookings: NewBookingRepo(db),
		CheckIns: NewCheckInRepo(db),
		Rods:     NewRodRepo(db),
	}
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (s *MySQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetPond(ctx context.Context, id uint64) (*model.Pond, error) {
	return s.Ponds.Get(ctx, id)
}

func (s *MySQLStore) GetTimeSlot(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	return s.Ponds.GetTimeSlot(ctx, id)
}

func (s *MySQLStore) ListTimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	return s.Ponds.ListTimeSlots(ctx)
}

func (s *MySQLStore) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return s.Events.Get(ctx, id)
}

func (s *MySQLStore) ListPondBookings(ctx context.Context, pondID uint64, day string) ([]model.Booking, error) {
	return s.Bookings.ListByPondDay(ctx, s.db, pondID, day)
}

func (s *MySQLStore) ListEventBookings(ctx context.Context, eventID uint64) ([]model.Booking, error) {
	return s.Bookings.ListByEvent(ctx, s.db, eventID)
}

func (s *MySQLStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return s.Bookings.Get(ctx, id)
}

func (s *MySQLStore) FindSeatByCredential(ctx context.Context, cred string) (*model.Booking, *model.Seat, error) {
	return s.Bookings.FindSeatByCredential(ctx, cred)
}

func (s *MySQLStore) ActiveCheckIn(ctx context.Context, seatID uint64) (*model.CheckInRecord, error) {
	return s.CheckIns.Active(ctx, s.db, seatID)
}

func (s *MySQLStore) GetCheckIn(ctx context.Context, id string) (*model.CheckInRecord, error) {
	return s.CheckIns.Get(ctx, id)
}

func (s *MySQLStore) ListCheckIns(ctx context.Context, bookingID string) ([]model.CheckInRecord, error) {
	return s.CheckIns.ListByBooking(ctx, bookingID)
}

func (s *MySQLStore) FindRodByCredential(ctx context.Context, cred string) (*model.RodTag, error) {
	return s.Rods.FindByCredential(ctx, cred)
}

func (s *MySQLStore) ListRods(ctx context.Context, seatID uint64) ([]model.RodTag, error) {
	return s.Rods.ListBySeat(ctx, seatID)
}

// CreateBooking locks the pond (pond bookings) or the event (event
// bookings), hands the competing bookings to admit and inserts b with its
// seats when admit accepts.
func (s *MySQLStore) CreateBooking(ctx context.Context, b *model.Booking, admit AdmitFunc) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var existing []model.Booking
		var err error
		switch b.Type {
		case model.BookingEvent:
			if b.EventID == nil {
				return ErrNotFound
			}
			if err = s.Events.LockTx(ctx, tx, *b.EventID); err != nil {
				return err
			}
			existing, err = s.Bookings.ListByEvent(ctx, tx, *b.EventID)
		default:
			if err = s.Ponds.LockTx(ctx, tx, b.PondID); err != nil {
				return err
			}
			existing, err = s.Bookings.ListByPondDay(ctx, tx, b.PondID, b.Day)
		}
		if err != nil {
			return err
		}
		if admit != nil {
			if err := admit(existing); err != nil {
				return err
			}
		}
		if err := s.Bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		return s.Bookings.CreateSeatsBulkTx(ctx, tx, b)
	})
}

// DeleteBooking removes a booking after voiding its open check-ins and
// retiring its active rod tags.
func (s *MySQLStore) DeleteBooking(ctx context.Context, id string, at time.Time) (*CancelResult, error) {
	res := &CancelResult{}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		b, err := s.Bookings.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		res.Booking = b
		if res.VoidedCheckIns, err = s.CheckIns.VoidByBookingTx(ctx, tx, id, at); err != nil {
			return err
		}
		if res.DeactivatedRod, err = s.Rods.DeactivateByBookingTx(ctx, tx, id, at); err != nil {
			return err
		}
		return s.Bookings.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AssignSeat locks the seat, applies mutate and writes the assignment.
func (s *MySQLStore) AssignSeat(ctx context.Context, bookingID string, seatNumber int, mutate SeatMutator) (*model.Seat, error) {
	var out *model.Seat
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		seat, err := s.Bookings.LockSeatByNumberTx(ctx, tx, bookingID, seatNumber)
		if err != nil {
			return err
		}
		if err := mutate(seat); err != nil {
			return err
		}
		if err := s.Bookings.UpdateAssignmentTx(ctx, tx, seat); err != nil {
			return err
		}
		out = seat
		return nil
	})
	return out, err
}

// CreateCheckIn opens a check-in under the seat lock.
func (s *MySQLStore) CreateCheckIn(ctx context.Context, rec *model.CheckInRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		seat, err := s.Bookings.LockSeatTx(ctx, tx, rec.SeatID)
		if err != nil {
			return err
		}
		if _, err := s.CheckIns.Active(ctx, tx, rec.SeatID); err == nil {
			return ErrConflict
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if seat.Status == model.SeatNoShow {
			return ErrStaleState
		}
		rec.Status = model.CheckInActive
		if err := s.CheckIns.InsertTx(ctx, tx, rec); err != nil {
			return err
		}
		return s.Bookings.SetSeatStatusTx(ctx, tx, rec.SeatID, model.SeatCheckedIn, rec.CheckInTime)
	})
}

// CloseCheckIn checks a record out.  The current record is returned with
// ErrConflict when it was already checked out and with ErrStaleState for
// no-show or voided records.
func (s *MySQLStore) CloseCheckIn(ctx context.Context, id, by string, at time.Time) (*model.CheckInRecord, error) {
	var out *model.CheckInRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rec, err := s.CheckIns.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		out = rec
		switch rec.Status {
		case model.CheckInActive:
		case model.CheckInCheckedOut:
			return ErrConflict
		default:
			return ErrStaleState
		}
		if err := s.CheckIns.CloseTx(ctx, tx, id, by, at); err != nil {
			return err
		}
		if err := s.Bookings.SetSeatStatusTx(ctx, tx, rec.SeatID, model.SeatCheckedOut, at); err != nil {
			return err
		}
		rec.Status = model.CheckInCheckedOut
		rec.CheckOutTime = ptrTime(at)
		rec.CheckedOutBy = ptrString(by)
		return nil
	})
	return out, err
}

// MarkNoShow records a terminal no-show for a seat that was never checked
// in.  An existing no-show is returned with created=false.
func (s *MySQLStore) MarkNoShow(ctx context.Context, rec *model.CheckInRecord) (*model.CheckInRecord, bool, error) {
	var out *model.CheckInRecord
	created := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		seat, err := s.Bookings.LockSeatTx(ctx, tx, rec.SeatID)
		if err != nil {
			return err
		}
		switch seat.Status {
		case model.SeatNoShow:
			prev, err := s.CheckIns.NoShowTx(ctx, tx, rec.SeatID)
			if errors.Is(err, ErrNotFound) {
				return ErrStaleState
			}
			out = prev
			return err
		case model.SeatCheckedIn, model.SeatCheckedOut:
			return ErrStaleState
		}
		rec.Status = model.CheckInNoShow
		if err := s.CheckIns.InsertTx(ctx, tx, rec); err != nil {
			return err
		}
		if err := s.Bookings.SetSeatStatusTx(ctx, tx, rec.SeatID, model.SeatNoShow, rec.CheckInTime); err != nil {
			return err
		}
		out, created = rec, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// IssueRod runs decide under the seat lock.  When decide returns a tag the
// current active tag is retired and the new one inserted in the same
// transaction.
func (s *MySQLStore) IssueRod(ctx context.Context, seatID uint64, at time.Time, decide RodDecider) (*model.RodTag, error) {
	var out *model.RodTag
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.Bookings.LockSeatTx(ctx, tx, seatID); err != nil {
			return err
		}
		current, err := s.Rods.ActiveTx(ctx, tx, seatID)
		if errors.Is(err, ErrNotFound) {
			current, err = nil, nil
		}
		if err != nil {
			return err
		}
		latest, err := s.Rods.LatestVersionTx(ctx, tx, seatID)
		if err != nil {
			return err
		}
		checkedIn := true
		if _, err := s.CheckIns.Active(ctx, tx, seatID); errors.Is(err, ErrNotFound) {
			checkedIn = false
		} else if err != nil {
			return err
		}
		next, err := decide(current, latest, checkedIn)
		if err != nil || next == nil {
			return err
		}
		if current != nil {
			if err := s.Rods.DeactivateTx(ctx, tx, current.ID, at); err != nil {
				return err
			}
		}
		next.SeatID = seatID
		next.Active = true
		if err := s.Rods.InsertTx(ctx, tx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}
