package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the registration state of a competition.
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOpen      EventStatus = "open"
	EventClosed    EventStatus = "closed"
	EventCompleted EventStatus = "completed"
)

// Event is a fishing competition held on one or more ponds.  Its check-in
// window is derived from its own StartMin/EndMin rather than from a
// TimeSlot row.  Capacity is measured in participants (bookings), not
// seats.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – competition title.
//  Date            – calendar day key (YYYY-MM-DD).
//  StartMin        – start time in minutes of day.
//  EndMin          – end time in minutes of day.
//  MaxParticipants – maximum number of event bookings.
//  PondIDs         – ponds assigned to the event.
//  BookingOpensAt  – instant registration opens.
//  Status          – upcoming, open, closed or completed.
//  EntryFee        – price per seat booked for the event.
type Event struct {
	ID              uint64          `json:"id"`               // events.id
	Name            string          `json:"name"`             // events.name
	Date            string          `json:"date"`             // events.event_date
	StartMin        int             `json:"start_min"`        // events.start_minute
	EndMin          int             `json:"end_min"`          // events.end_minute
	MaxParticipants int             `json:"max_participants"` // events.max_participants
	PondIDs         []uint64        `json:"pond_ids"`         // event_ponds.pond_id
	BookingOpensAt  time.Time       `json:"booking_opens_at"` // events.booking_opens_at
	Status          EventStatus     `json:"status"`           // events.status
	EntryFee        decimal.Decimal `json:"entry_fee"`        // events.entry_fee
}

// HasPond reports whether the pond is assigned to the event.
func (e Event) HasPond(pondID uint64) bool {
	for _, id := range e.PondIDs {
		if id == pondID {
			return true
		}
	}
	return false
}
