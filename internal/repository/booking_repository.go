package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// BookingRepo persists bookings and their seats.  A booking is always
// written together with its seats inside one transaction; the seats are
// stored in booking_seats and are removed with the booking by the
// foreign key cascade.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, booking_type, pond_id, event_id, booking_date, time_slot_id, total_price, owner_id, created_at`

const seatColumns = `id, booking_id, seat_number, assigned_identity, assigned_by, assigned_at, credential, status, checked_in_at, checked_out_at`

// CreateTx inserts the booking row within the scope of an existing
// transaction.  The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, booking_type, pond_id, event_id, booking_date, time_slot_id, total_price, owner_id, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var eventID, slotID any
	if b.EventID != nil {
		eventID = *b.EventID
	}
	if b.TimeSlotID != nil {
		slotID = *b.TimeSlotID
	}
	_, err := tx.ExecContext(ctx, q, b.ID, string(b.Type), b.PondID, eventID, b.Day, slotID,
		b.TotalPrice.StringFixed(2), b.OwnerID, b.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// CreateSeatsBulkTx inserts every seat of b in a single statement and
// then reads back the generated IDs.  Passing a booking without seats has
// no effect and returns nil.
func (r *BookingRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if len(b.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_number, assigned_identity, assigned_by, assigned_at, credential, status) VALUES `
	args := make([]any, 0, len(b.Seats)*7)
	for i, s := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, b.ID, s.Number, nullString(s.AssignedIdentity), nullString(s.AssignedBy),
			nullTime(s.AssignedAt), s.Credential, string(s.Status))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	rows, err := tx.QueryContext(ctx, `SELECT id, seat_number FROM booking_seats WHERE booking_id = ?`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		if s := b.SeatByNumber(n); s != nil {
			s.ID = id
			s.BookingID = b.ID
		}
	}
	return rows.Err()
}

// Get returns a booking with its seats or ErrNotFound.
func (r *BookingRepo) Get(ctx context.Context, id string) (*model.Booking, error) {
	return r.get(ctx, r.db, id, false)
}

// GetForUpdateTx is Get with a row lock on the booking.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Booking, error) {
	return r.get(ctx, tx, id, true)
}

func (r *BookingRepo) get(ctx context.Context, q dbtx, id string, lock bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	list := []model.Booking{*b}
	if err := loadSeats(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListByPondDay returns the pond bookings for a pond and day, seats
// included.
func (r *BookingRepo) ListByPondDay(ctx context.Context, q dbtx, pondID uint64, day string) ([]model.Booking, error) {
	return listBookings(ctx, q,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_type = 'pond' AND pond_id = ? AND booking_date = ? ORDER BY created_at, id`,
		pondID, day)
}

// ListByEvent returns the bookings registered for an event.
func (r *BookingRepo) ListByEvent(ctx context.Context, q dbtx, eventID uint64) ([]model.Booking, error) {
	return listBookings(ctx, q,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_type = 'event' AND event_id = ? ORDER BY created_at, id`,
		eventID)
}

// FindSeatByCredential resolves a seat credential to its booking.  The
// returned seat points into the returned booking.
func (r *BookingRepo) FindSeatByCredential(ctx context.Context, cred string) (*model.Booking, *model.Seat, error) {
	var bookingID string
	err := r.db.QueryRowContext(ctx, `SELECT booking_id FROM booking_seats WHERE credential = ?`, cred).Scan(&bookingID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	b, err := r.Get(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	for i := range b.Seats {
		if b.Seats[i].Credential == cred {
			return b, &b.Seats[i], nil
		}
	}
	return nil, nil, ErrNotFound
}

// DeleteTx removes the booking; its seats go with it.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LockSeatTx loads one seat with a row lock.
func (r *BookingRepo) LockSeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Seat, error) {
	return scanSeat(tx.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM booking_seats WHERE id = ? FOR UPDATE`, seatID))
}

// LockSeatByNumberTx loads a seat by booking and seat number with a row
// lock.
func (r *BookingRepo) LockSeatByNumberTx(ctx context.Context, tx *sql.Tx, bookingID string, number int) (*model.Seat, error) {
	return scanSeat(tx.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM booking_seats WHERE booking_id = ? AND seat_number = ? FOR UPDATE`,
		bookingID, number))
}

// UpdateAssignmentTx writes the assignment fields and status of a seat.
func (r *BookingRepo) UpdateAssignmentTx(ctx context.Context, tx *sql.Tx, s *model.Seat) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE booking_seats SET assigned_identity = ?, assigned_by = ?, assigned_at = ?, status = ? WHERE id = ?`,
		nullString(s.AssignedIdentity), nullString(s.AssignedBy), nullTime(s.AssignedAt), string(s.Status), s.ID)
	return err
}

// SetSeatStatusTx moves a seat to status and records the matching
// timestamp.
func (r *BookingRepo) SetSeatStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, status model.SeatStatus, at time.Time) error {
	var q string
	switch status {
	case model.SeatCheckedIn:
		q = `UPDATE booking_seats SET status = ?, checked_in_at = ?, checked_out_at = NULL WHERE id = ?`
	case model.SeatCheckedOut:
		q = `UPDATE booking_seats SET status = ?, checked_out_at = ? WHERE id = ?`
	default:
		_, err := tx.ExecContext(ctx, `UPDATE booking_seats SET status = ? WHERE id = ?`, string(status), seatID)
		return err
	}
	_, err := tx.ExecContext(ctx, q, string(status), at.UTC(), seatID)
	return err
}

func listBookings(ctx context.Context, q dbtx, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadSeats(ctx, q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadSeats fills the Seats of every booking in list with one query.
func loadSeats(ctx context.Context, q dbtx, list []model.Booking) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[string]int, len(list))
	args := make([]any, 0, len(list))
	for i := range list {
		index[list[i].ID] = i
		list[i].Seats = []model.Seat{}
		args = append(args, list[i].ID)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM booking_seats WHERE booking_id IN (`+placeholders(len(args))+`) ORDER BY booking_id, seat_number`,
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return err
		}
		if i, ok := index[s.BookingID]; ok {
			list[i].Seats = append(list[i].Seats, *s)
		}
	}
	return rows.Err()
}

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var typ string
	var eventID, slotID sql.NullInt64
	var day sqlDate
	err := row.Scan(&b.ID, &typ, &b.PondID, &eventID, &day, &slotID, &b.TotalPrice, &b.OwnerID, &b.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	b.Type = model.BookingType(typ)
	b.Day = day.key
	if eventID.Valid {
		v := uint64(eventID.Int64)
		b.EventID = &v
	}
	if slotID.Valid {
		v := uint64(slotID.Int64)
		b.TimeSlotID = &v
	}
	return &b, nil
}

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	var identity, by sql.NullString
	var assignedAt, inAt, outAt sql.NullTime
	var status string
	err := row.Scan(&s.ID, &s.BookingID, &s.Number, &identity, &by, &assignedAt, &s.Credential, &status, &inAt, &outAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	s.Status = model.SeatStatus(status)
	if identity.Valid {
		s.AssignedIdentity = ptrString(identity.String)
	}
	if by.Valid {
		s.AssignedBy = ptrString(by.String)
	}
	if assignedAt.Valid {
		s.AssignedAt = ptrTime(assignedAt.Time)
	}
	if inAt.Valid {
		s.CheckedInAt = ptrTime(inAt.Time)
	}
	if outAt.Valid {
		s.CheckedOutAt = ptrTime(outAt.Time)
	}
	return &s, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
