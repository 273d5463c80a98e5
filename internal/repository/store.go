package repository

import (
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// AdmitFunc decides whether a new booking fits.  It receives every booking
// that competes for the same capacity (same pond and day for pond
// bookings, same event for event bookings) as seen inside the store's
// atomic unit, and may fill in seat numbers and credentials on the booking
// being created.  Returning an error aborts the insert.
type AdmitFunc func(existing []model.Booking) error

// RodDecider chooses the tag to insert for a seat.  current is the active
// tag or nil, latest is the highest version ever issued for the seat and
// checkedIn reports whether the seat has an open check-in.  Returning a
// nil tag and nil error leaves the seat unchanged.
type RodDecider func(current *model.RodTag, latest int, checkedIn bool) (*model.RodTag, error)

// SeatMutator edits a seat's assignment fields in place.  Only
// AssignedIdentity, AssignedBy, AssignedAt and Status are persisted.
type SeatMutator func(seat *model.Seat) error

// CancelResult reports what a booking deletion voided.
type CancelResult struct {
	Booking        *model.Booking
	VoidedCheckIns int
	DeactivatedRod int
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }
