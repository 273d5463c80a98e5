package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/monitoring"
)

// Dispatcher decouples request handling from the broker.  Publish only
// enqueues; a fixed set of workers forwards events to the underlying
// publisher.  When the buffer is full the event is dropped and logged
// rather than blocking the caller.
type Dispatcher struct {
	next    Publisher
	log     *logger.Logger
	ch      chan Event
	wg      sync.WaitGroup
	timeout time.Duration
	once    sync.Once
}

// NewDispatcher starts workers goroutines forwarding to next.
func NewDispatcher(next Publisher, log *logger.Logger, buffer, workers int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispatcher{next: next, log: log, ch: make(chan Event, buffer), timeout: 5 * time.Second}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Publish enqueues ev.  It never blocks and never fails the caller.
func (d *Dispatcher) Publish(_ context.Context, ev Event) error {
	select {
	case d.ch <- ev:
	default:
		d.log.Warn("QUEUE", fmt.Sprintf("dispatch buffer full, dropping %s for booking %s", ev.Type, ev.BookingID))
		monitoring.EventPublished(ev.Type, fmt.Errorf("dropped"))
	}
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.next.Publish(ctx, ev)
		cancel()
		monitoring.EventPublished(ev.Type, err)
		if err != nil {
			d.log.Error("QUEUE", fmt.Sprintf("publish %s for booking %s failed: %v", ev.Type, ev.BookingID, err))
		}
	}
}

// Close stops accepting events and waits for queued ones to be sent.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.ch) })
	d.wg.Wait()
}
