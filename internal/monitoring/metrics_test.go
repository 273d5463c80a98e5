package monitoring

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(scanOutcomes.WithLabelValues("checkin", "wrongTime"))
	ScanOutcome("checkin", "wrongTime")
	assert.Equal(t, before+1, testutil.ToFloat64(scanOutcomes.WithLabelValues("checkin", "wrongTime")))

	failed := testutil.ToFloat64(eventsPublished.WithLabelValues("seat.checked_in", "error"))
	EventPublished("seat.checked_in", errors.New("broker down"))
	assert.Equal(t, failed+1, testutil.ToFloat64(eventsPublished.WithLabelValues("seat.checked_in", "error")))

	replaced := testutil.ToFloat64(rodsIssued.WithLabelValues("true"))
	RodIssued(true)
	assert.Equal(t, replaced+1, testutil.ToFloat64(rodsIssued.WithLabelValues("true")))
}
