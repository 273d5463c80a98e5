// Package service provides the RabbitMQ side of domain event delivery.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
)

// RabbitPublisher publishes events to a durable queue on the default
// exchange.  A connection is opened per publish; callers that need
// throughput put a queue.Dispatcher in front of it.
type RabbitPublisher struct {
	URL   string
	Queue string
	Log   *logger.Logger
}

// NewRabbitPublisher returns a publisher for the seat activity queue.
func NewRabbitPublisher(url string, log *logger.Logger) *RabbitPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &RabbitPublisher{URL: url, Queue: queue.ActivityQueue, Log: log}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.Event) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Error("QUEUE", fmt.Sprintf("rabbitmq: dial failed: %v", err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Error("QUEUE", fmt.Sprintf("rabbitmq: channel open failed: %v", err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		p.Log.Error("QUEUE", fmt.Sprintf("rabbitmq: queue declare failed: %v", err))
		return err
	}

	pub, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.Log.Error("QUEUE", fmt.Sprintf("rabbitmq: publish failed: %v", err))
		return err
	}
	p.Log.LogQueue("PUBLISH", "publisher", ev.Type+" "+ev.BookingID)
	return nil
}

// Encode builds the AMQP message for ev.
func Encode(ev queue.Event) (amqp.Publishing, error) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt.UTC(),
		Body:         body,
	}, nil
}
