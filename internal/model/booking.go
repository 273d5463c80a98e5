package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingType distinguishes direct pond bookings from competition entries.
type BookingType string

const (
	BookingPond  BookingType = "pond"
	BookingEvent BookingType = "event"
)

// SeatStatus is the lifecycle state of a single booked seat.
type SeatStatus string

const (
	SeatUnassigned SeatStatus = "unassigned"
	SeatAssigned   SeatStatus = "assigned"
	SeatCheckedIn  SeatStatus = "checked-in"
	SeatCheckedOut SeatStatus = "checked-out"
	SeatNoShow     SeatStatus = "no-show"
)

// Reassignable reports whether the seat holder may still be changed.  Once
// a seat has been checked in it can never be reassigned, even after
// check-out.
func (s SeatStatus) Reassignable() bool {
	return s == SeatUnassigned || s == SeatAssigned
}

// Booking groups one or more seats reserved together for a pond session
// or an event.  Bookings and their seats are created atomically and are
// immutable apart from seat assignment and seat status.
//
// Fields:
//  ID         – opaque booking identifier (uuid).
//  Type       – pond or event.
//  PondID     – pond being booked (also set for event bookings).
//  EventID    – event entered, nil for pond bookings.
//  Day        – calendar day key of the session.
//  TimeSlotID – time slot for pond bookings, nil for event bookings.
//  Seats      – seats in seat-number order.
//  TotalPrice – total amount charged.
//  OwnerID    – identity that paid for the booking.
//  CreatedAt  – creation timestamp.
type Booking struct {
	ID         string          `json:"id"`                     // bookings.id
	Type       BookingType     `json:"type"`                   // bookings.booking_type
	PondID     uint64          `json:"pond_id"`                // bookings.pond_id
	EventID    *uint64         `json:"event_id,omitempty"`     // bookings.event_id (nullable)
	Day        string          `json:"date"`                   // bookings.booking_date
	TimeSlotID *uint64         `json:"time_slot_id,omitempty"` // bookings.time_slot_id (nullable)
	Seats      []Seat          `json:"seats"`                  // booking_seats
	TotalPrice decimal.Decimal `json:"total_price"`            // bookings.total_price
	OwnerID    string          `json:"owner_id"`               // bookings.owner_id
	CreatedAt  time.Time       `json:"created_at"`             // bookings.created_at
}

// SeatByNumber returns the seat with the given number or nil.
func (b *Booking) SeatByNumber(n int) *Seat {
	for i := range b.Seats {
		if b.Seats[i].Number == n {
			return &b.Seats[i]
		}
	}
	return nil
}

// SeatByID returns the seat with the given ID or nil.
func (b *Booking) SeatByID(id uint64) *Seat {
	for i := range b.Seats {
		if b.Seats[i].ID == id {
			return &b.Seats[i]
		}
	}
	return nil
}

// Seat is one bookable position inside a booking.  Each seat carries its
// own credential, which stays the same when the seat is reassigned.
//
// Fields:
//  ID               – primary key identifier.
//  BookingID        – owning booking.
//  Number           – seat number, unique within the booking.
//  AssignedIdentity – identity holding the seat, nil while unclaimed.
//  AssignedBy       – identity that performed the last assignment.
//  AssignedAt       – when the seat was last assigned.
//  Credential       – QR payload for the seat.
//  Status           – lifecycle state.
//  CheckedInAt      – time of check-in.
//  CheckedOutAt     – time of check-out.
type Seat struct {
	ID               uint64     `json:"id"`                          // booking_seats.id
	BookingID        string     `json:"booking_id"`                  // booking_seats.booking_id
	Number           int        `json:"number"`                      // booking_seats.seat_number
	AssignedIdentity *string    `json:"assigned_identity,omitempty"` // booking_seats.assigned_identity (nullable)
	AssignedBy       *string    `json:"assigned_by,omitempty"`       // booking_seats.assigned_by (nullable)
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`       // booking_seats.assigned_at (nullable)
	Credential       string     `json:"credential"`                  // booking_seats.credential
	Status           SeatStatus `json:"status"`                      // booking_seats.status
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`     // booking_seats.checked_in_at (nullable)
	CheckedOutAt     *time.Time `json:"checked_out_at,omitempty"`    // booking_seats.checked_out_at (nullable)
}

// BookingSummary is the subset of a booking shown to operators when a
// credential is scanned.
type BookingSummary struct {
	BookingID  string      `json:"booking_id"`
	Type       BookingType `json:"type"`
	PondID     uint64      `json:"pond_id"`
	PondName   string      `json:"pond_name,omitempty"`
	EventID    *uint64     `json:"event_id,omitempty"`
	EventName  string      `json:"event_name,omitempty"`
	Day        string      `json:"date"`
	SeatNumber int         `json:"seat_number"`
	Holder     *string     `json:"holder,omitempty"`
	OwnerID    string      `json:"owner_id"`
}

// Summarize builds a BookingSummary for seat.
func (b *Booking) Summarize(seat *Seat) BookingSummary {
	s := BookingSummary{
		BookingID: b.ID,
		Type:      b.Type,
		PondID:    b.PondID,
		EventID:   b.EventID,
		Day:       b.Day,
		OwnerID:   b.OwnerID,
	}
	if seat != nil {
		s.SeatNumber = seat.Number
		s.Holder = seat.AssignedIdentity
	}
	return s
}
