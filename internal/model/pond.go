package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shape describes the outline of a pond and therefore how seats are laid
// out around it.
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeSquare    Shape = "square"
	ShapeCircle    Shape = "circle"
)

// Valid reports whether s is one of the supported pond shapes.
func (s Shape) Valid() bool {
	switch s {
	case ShapeRectangle, ShapeSquare, ShapeCircle:
		return true
	}
	return false
}

// Edge indexes into a pond's seat distribution array.
const (
	EdgeTop = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

// Pond represents a bookable fishing pond.  Seats are arranged around the
// pond according to Distribution, which holds the seat count for the
// [top, right, bottom, left] edges.  Circular ponds only use the first
// element as the total number of seats.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name of the pond.
//  Capacity       – declared seat count entered by an administrator.
//  Shape          – rectangle, square or circle.
//  Distribution   – seats per edge [top, right, bottom, left].
//  BookingEnabled – whether customers may book the pond directly.
//  PricePerSeat   – price charged per booked seat.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Pond struct {
	ID             uint64          `json:"id"`              // ponds.id
	Name           string          `json:"name"`            // ponds.name
	Capacity       int             `json:"capacity"`        // ponds.capacity
	Shape          Shape           `json:"shape"`           // ponds.shape
	Distribution   [4]int          `json:"distribution"`    // ponds.seat_top .. ponds.seat_left
	BookingEnabled bool            `json:"booking_enabled"` // ponds.booking_enabled
	PricePerSeat   decimal.Decimal `json:"price_per_seat"`  // ponds.price_per_seat
	CreatedAt      time.Time       `json:"created_at"`      // ponds.created_at
	UpdatedAt      time.Time       `json:"updated_at"`      // ponds.updated_at
}

// DistributionSum returns the number of seats described by the
// distribution array.  For circular ponds only the first element counts.
func (p Pond) DistributionSum() int {
	if p.Shape == ShapeCircle {
		return p.Distribution[0]
	}
	return p.Distribution[EdgeTop] + p.Distribution[EdgeRight] + p.Distribution[EdgeBottom] + p.Distribution[EdgeLeft]
}

// SeatTotal is the number of bookable seats.  The distribution array wins
// over the declared capacity; Capacity is only used when the array is
// empty.
func (p Pond) SeatTotal() int {
	if n := p.DistributionSum(); n > 0 {
		return n
	}
	if p.Capacity > 0 {
		return p.Capacity
	}
	return 0
}

// CapacityMismatch reports whether the declared capacity disagrees with
// the distribution array.  Administrators are warned about this but it
// is not an error.
func (p Pond) CapacityMismatch() bool {
	sum := p.DistributionSum()
	return sum > 0 && p.Capacity > 0 && sum != p.Capacity
}
