package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// RodRepo provides data access to rod_tags.  Superseded tags keep their
// row with active = 0; at most one active tag per seat is enforced by the
// unique generated active_seat_id column.
type RodRepo struct {
	db *sql.DB
}

// NewRodRepo returns a new RodRepo bound to the provided database.
func NewRodRepo(db *sql.DB) *RodRepo { return &RodRepo{db: db} }

const rodColumns = `id, credential, version, seat_id, booking_id, station_id, issued_by, active, issued_at, deactivated_at`

// InsertTx writes a new active tag.
func (r *RodRepo) InsertTx(ctx context.Context, tx *sql.Tx, tag *model.RodTag) error {
	const q = `INSERT INTO rod_tags (id, credential, version, seat_id, booking_id, station_id, issued_by, active, issued_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`
	_, err := tx.ExecContext(ctx, q, tag.ID, tag.Credential, tag.Version, tag.SeatID, tag.BookingID,
		tag.StationID, tag.IssuedBy, tag.IssuedAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// ActiveTx returns the active tag of a seat or ErrNotFound.
func (r *RodRepo) ActiveTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.RodTag, error) {
	return scanRod(tx.QueryRowContext(ctx, `SELECT `+rodColumns+` FROM rod_tags WHERE active_seat_id = ?`, seatID))
}

// LatestVersionTx returns the highest version ever issued to a seat, or 0.
func (r *RodRepo) LatestVersionTx(ctx context.Context, tx *sql.Tx, seatID uint64) (int, error) {
	var v int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM rod_tags WHERE seat_id = ?`, seatID).Scan(&v)
	return v, err
}

// DeactivateTx retires one tag.
func (r *RodRepo) DeactivateTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE rod_tags SET active = 0, deactivated_at = ? WHERE id = ? AND active = 1`, at.UTC(), id)
	return err
}

// DeactivateByBookingTx retires every active tag of a booking.
func (r *RodRepo) DeactivateByBookingTx(ctx context.Context, tx *sql.Tx, bookingID string, at time.Time) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE rod_tags SET active = 0, deactivated_at = ? WHERE booking_id = ? AND active = 1`, at.UTC(), bookingID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// FindByCredential resolves a rod credential, active or not.
func (r *RodRepo) FindByCredential(ctx context.Context, cred string) (*model.RodTag, error) {
	return scanRod(r.db.QueryRowContext(ctx, `SELECT `+rodColumns+` FROM rod_tags WHERE credential = ?`, cred))
}

// ListBySeat returns every tag of a seat ordered by version.
func (r *RodRepo) ListBySeat(ctx context.Context, seatID uint64) ([]model.RodTag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+rodColumns+` FROM rod_tags WHERE seat_id = ? ORDER BY version`, seatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RodTag
	for rows.Next() {
		tag, err := scanRod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tag)
	}
	return out, rows.Err()
}

func scanRod(row interface{ Scan(...any) error }) (*model.RodTag, error) {
	var tag model.RodTag
	var deactivated sql.NullTime
	err := row.Scan(&tag.ID, &tag.Credential, &tag.Version, &tag.SeatID, &tag.BookingID, &tag.StationID,
		&tag.IssuedBy, &tag.Active, &tag.IssuedAt, &deactivated)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if deactivated.Valid {
		tag.DeactivatedAt = ptrTime(deactivated.Time)
	}
	return &tag, nil
}
