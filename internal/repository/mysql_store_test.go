package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db), mock
}

func TestGetPondScansRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "shape", "seat_top", "seat_right", "seat_bottom", "seat_left",
		"booking_enabled", "price_per_seat", "created_at", "updated_at"}).
		AddRow(3, "Lily", 10, "rectangle", 3, 2, 3, 2, true, "12.50", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ponds WHERE id = ?")).WithArgs(uint64(3)).WillReturnRows(rows)

	p, err := store.GetPond(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Lily", p.Name)
	assert.Equal(t, model.ShapeRectangle, p.Shape)
	assert.Equal(t, [4]int{3, 2, 3, 2}, p.Distribution)
	assert.True(t, p.PricePerSeat.Equal(decimal.RequireFromString("12.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPondNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ponds WHERE id = ?")).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetPond(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingAdmitRejectionRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	full := errors.New("full")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM ponds WHERE id = ? FOR UPDATE")).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_type = 'pond'")).WithArgs(uint64(1), "2026-10-20").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	b := &model.Booking{ID: "b1", Type: model.BookingPond, PondID: 1, Day: "2026-10-20"}
	err := store.CreateBooking(context.Background(), b, func(existing []model.Booking) error {
		assert.Empty(t, existing)
		return full
	})
	assert.ErrorIs(t, err, full)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingMissingPond(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM ponds WHERE id = ? FOR UPDATE")).WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.CreateBooking(context.Background(), &model.Booking{ID: "b1", Type: model.BookingPond, PondID: 4}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func checkInRow(status string, out any) *sqlmock.Rows {
	in := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "booking_id", "seat_id", "seat_number", "check_in_time", "check_out_time",
		"status", "scanned_by", "checked_out_by", "notes"}).
		AddRow("c1", "b1", 7, 2, in, out, status, "op", nil, nil)
}

func TestCloseCheckInAlreadyClosed(t *testing.T) {
	store, mock := newMockStore(t)
	out := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM check_ins WHERE id = ? FOR UPDATE")).WithArgs("c1").
		WillReturnRows(checkInRow("checked-out", out))
	mock.ExpectRollback()

	rec, err := store.CloseCheckIn(context.Background(), "c1", "op", out.Add(time.Hour))
	assert.ErrorIs(t, err, ErrConflict)
	require.NotNil(t, rec)
	assert.Equal(t, model.CheckInCheckedOut, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseCheckInCommits(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM check_ins WHERE id = ? FOR UPDATE")).WithArgs("c1").
		WillReturnRows(checkInRow("checked-in", nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE check_ins SET status = 'checked-out'")).WithArgs(sqlmock.AnyArg(), "op", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_seats")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := store.CloseCheckIn(context.Background(), "c1", "op", at)
	require.NoError(t, err)
	assert.Equal(t, model.CheckInCheckedOut, rec.Status)
	assert.Equal(t, "op", *rec.CheckedOutBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCheckInDuplicateIsConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO check_ins")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := store.inTx(context.Background(), func(tx *sql.Tx) error {
		return store.CheckIns.InsertTx(context.Background(), tx, &model.CheckInRecord{
			ID: "c2", BookingID: "b1", SeatID: 7, SeatNumber: 2, Status: model.CheckInActive,
			CheckInTime: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), ScannedBy: "op",
		})
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
