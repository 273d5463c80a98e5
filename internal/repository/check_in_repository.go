package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// CheckInRepo provides data access to the check_ins table.  Rows are
// never deleted: check-out, no-show and cancellation update the status
// in place so the table doubles as the audit trail.  The generated
// active_seat_id column carries a unique index that rejects a second
// open check-in for the same seat even if two transactions race past the
// seat lock.
type CheckInRepo struct {
	db *sql.DB
}

// NewCheckInRepo returns a new CheckInRepo bound to the provided database.
func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

const checkInColumns = `id, booking_id, seat_id, seat_number, check_in_time, check_out_time, status, scanned_by, checked_out_by, notes`

// InsertTx writes a new record.  A unique violation on the open check-in
// index is reported as ErrConflict.
func (r *CheckInRepo) InsertTx(ctx context.Context, tx *sql.Tx, rec *model.CheckInRecord) error {
	const q = `INSERT INTO check_ins (id, booking_id, seat_id, seat_number, check_in_time, status, scanned_by, notes)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, rec.ID, rec.BookingID, rec.SeatID, rec.SeatNumber,
		rec.CheckInTime.UTC(), string(rec.Status), rec.ScannedBy, nullString(rec.Notes))
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Active returns the open record for a seat or ErrNotFound.
func (r *CheckInRepo) Active(ctx context.Context, q dbtx, seatID uint64) (*model.CheckInRecord, error) {
	return scanCheckIn(q.QueryRowContext(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE active_seat_id = ?`, seatID))
}

// Get returns a record by ID or ErrNotFound.
func (r *CheckInRepo) Get(ctx context.Context, id string) (*model.CheckInRecord, error) {
	return scanCheckIn(r.db.QueryRowContext(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE id = ?`, id))
}

// GetForUpdateTx loads a record with a row lock.
func (r *CheckInRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.CheckInRecord, error) {
	return scanCheckIn(tx.QueryRowContext(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE id = ? FOR UPDATE`, id))
}

// NoShowTx returns the no-show record of a seat or ErrNotFound.
func (r *CheckInRepo) NoShowTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.CheckInRecord, error) {
	return scanCheckIn(tx.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM check_ins WHERE seat_id = ? AND status = 'no-show' ORDER BY check_in_time LIMIT 1`,
		seatID))
}

// CloseTx marks an open record as checked out.
func (r *CheckInRepo) CloseTx(ctx context.Context, tx *sql.Tx, id, by string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE check_ins SET status = 'checked-out', check_out_time = ?, checked_out_by = ? WHERE id = ? AND status = 'checked-in'`,
		at.UTC(), by, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// VoidByBookingTx closes every open record of a booking with status
// voided and returns how many were affected.
func (r *CheckInRepo) VoidByBookingTx(ctx context.Context, tx *sql.Tx, bookingID string, at time.Time) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE check_ins SET status = 'voided', check_out_time = ? WHERE booking_id = ? AND status = 'checked-in'`,
		at.UTC(), bookingID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListByBooking returns the audit trail of a booking, oldest first.
func (r *CheckInRepo) ListByBooking(ctx context.Context, bookingID string) ([]model.CheckInRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+checkInColumns+` FROM check_ins WHERE booking_id = ? ORDER BY check_in_time, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CheckInRecord
	for rows.Next() {
		rec, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanCheckIn(row interface{ Scan(...any) error }) (*model.CheckInRecord, error) {
	var rec model.CheckInRecord
	var outAt sql.NullTime
	var status string
	var by, notes sql.NullString
	err := row.Scan(&rec.ID, &rec.BookingID, &rec.SeatID, &rec.SeatNumber, &rec.CheckInTime, &outAt,
		&status, &rec.ScannedBy, &by, &notes)
	if err != nil {
		return nil, notFoundOr(err)
	}
	rec.Status = model.CheckInStatus(status)
	if outAt.Valid {
		rec.CheckOutTime = ptrTime(outAt.Time)
	}
	if by.Valid {
		rec.CheckedOutBy = ptrString(by.String)
	}
	if notes.Valid {
		rec.Notes = ptrString(notes.String)
	}
	return &rec, nil
}
