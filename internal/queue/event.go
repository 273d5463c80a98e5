// Package queue defines the domain events exchanged over the message
// broker and the background pieces that move them.
package queue

import (
	"context"
	"time"
)

// Event types published by the booking, check-in, rod and sharing
// services.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	SeatAssigned     = "seat.assigned"
	SeatCheckedIn    = "seat.checked_in"
	SeatCheckedOut   = "seat.checked_out"
	SeatNoShow       = "seat.no_show"
	RodIssued        = "rod.issued"
)

// ActivityQueue is the durable queue all events are routed to.
const ActivityQueue = "seat.activity"

// Event is the envelope of every message.  It carries enough context for
// downstream consumers to log or notify without querying the primary
// database.
type Event struct {
	Type       string            `json:"type"`
	BookingID  string            `json:"booking_id"`
	SeatNumber int               `json:"seat_number,omitempty"`
	Actor      string            `json:"actor"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Publisher delivers events.  Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Nop discards every event.
var Nop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
