package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pond_bookings_created_total",
			Help: "Bookings created per booking type",
		},
		[]string{"type"},
	)

	bookingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pond_bookings_rejected_total",
			Help: "Booking requests rejected per reason",
		},
		[]string{"type", "reason"},
	)

	bookingsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pond_bookings_cancelled_total",
			Help: "Bookings deleted",
		},
	)

	scanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pond_scan_outcomes_total",
			Help: "Credential scans per purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	seatTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pond_seat_transitions_total",
			Help: "Seat lifecycle transitions",
		},
		[]string{"to"},
	)

	rodsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pond_rods_issued_total",
			Help: "Rod tags issued, split by replacement",
		},
		[]string{"replacement"},
	)

	storeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pond_store_operation_seconds",
			Help:    "Duration of atomic store operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pond_domain_events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"type", "status"},
	)
)

func BookingCreated(kind string) { bookingsCreated.WithLabelValues(kind).Inc() }

func BookingRejected(kind, reason string) { bookingsRejected.WithLabelValues(kind, reason).Inc() }

func BookingCancelled() { bookingsCancelled.Inc() }

// ScanOutcome counts a validation result; purpose is checkin, checkout or
// rod.
func ScanOutcome(purpose, outcome string) { scanOutcomes.WithLabelValues(purpose, outcome).Inc() }

func SeatTransition(to string) { seatTransitions.WithLabelValues(to).Inc() }

func RodIssued(replacement bool) {
	label := "false"
	if replacement {
		label = "true"
	}
	rodsIssued.WithLabelValues(label).Inc()
}

func EventPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	eventsPublished.WithLabelValues(eventType, status).Inc()
}

// ObserveStore records how long an atomic store operation took.  Use as
// defer monitoring.ObserveStore("create_booking", time.Now()).
func ObserveStore(operation string, start time.Time) {
	storeLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
