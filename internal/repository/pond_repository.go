package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// PondRepo reads ponds and the time slots they are booked in.
type PondRepo struct {
	db *sql.DB
}

// NewPondRepo returns a new PondRepo bound to the given database.
func NewPondRepo(db *sql.DB) *PondRepo { return &PondRepo{db: db} }

const pondColumns = `id, name, capacity, shape, seat_top, seat_right, seat_bottom, seat_left, booking_enabled, price_per_seat, created_at, updated_at`

func scanPond(row interface{ Scan(...any) error }) (*model.Pond, error) {
	var p model.Pond
	var shape string
	err := row.Scan(
		&p.ID, &p.Name, &p.Capacity, &shape,
		&p.Distribution[model.EdgeTop], &p.Distribution[model.EdgeRight],
		&p.Distribution[model.EdgeBottom], &p.Distribution[model.EdgeLeft],
		&p.BookingEnabled, &p.PricePerSeat, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	p.Shape = model.Shape(shape)
	return &p, nil
}

// Get returns a pond by ID or ErrNotFound.
func (r *PondRepo) Get(ctx context.Context, id uint64) (*model.Pond, error) {
	return scanPond(r.db.QueryRowContext(ctx, `SELECT `+pondColumns+` FROM ponds WHERE id = ?`, id))
}

// LockTx takes a row lock on the pond for the remainder of tx.  Every
// booking for the pond serialises on this lock.
func (r *PondRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM ponds WHERE id = ? FOR UPDATE`, id).Scan(&got)
	return notFoundOr(err)
}

// GetTimeSlot returns a time slot with its range parsed.
func (r *PondRepo) GetTimeSlot(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	var label, rng string
	err := r.db.QueryRowContext(ctx, `SELECT id, label, time_range FROM time_slots WHERE id = ?`, id).Scan(&id, &label, &rng)
	if err != nil {
		return nil, notFoundOr(err)
	}
	ts, err := model.NewTimeSlot(id, label, rng)
	if err != nil {
		return nil, fmt.Errorf("time slot %d: %w", id, err)
	}
	return &ts, nil
}

// ListTimeSlots returns every time slot.  Rows whose range cannot be
// parsed are reported as an error rather than skipped.
func (r *PondRepo) ListTimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, label, time_range FROM time_slots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TimeSlot
	for rows.Next() {
		var id uint64
		var label, rng string
		if err := rows.Scan(&id, &label, &rng); err != nil {
			return nil, err
		}
		ts, err := model.NewTimeSlot(id, label, rng)
		if err != nil {
			return nil, fmt.Errorf("time slot %d: %w", id, err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// EventRepo reads competitions and their pond assignments.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Get returns an event with its pond IDs or ErrNotFound.
func (r *EventRepo) Get(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, name, event_date, start_minute, end_minute, max_participants, booking_opens_at, status, entry_fee
               FROM events WHERE id = ?`
	var e model.Event
	var date sqlDate
	var status string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Name, &date, &e.StartMin, &e.EndMin, &e.MaxParticipants,
		&e.BookingOpensAt, &status, &e.EntryFee,
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	e.Date = date.key
	e.Status = model.EventStatus(status)
	rows, err := r.db.QueryContext(ctx, `SELECT pond_id FROM event_ponds WHERE event_id = ? ORDER BY pond_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid uint64
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		e.PondIDs = append(e.PondIDs, pid)
	}
	return &e, rows.Err()
}

// LockTx takes a row lock on the event.  Event registrations serialise
// on it so the participant count cannot be overrun.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, id).Scan(&got)
	return notFoundOr(err)
}
