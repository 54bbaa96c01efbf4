package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"co2_monitor/internal/models"
)

const (
	durable          = true
	deleteWhenUnused = false
	exclusive        = false
	noWait           = false
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPChannel publishes notifications to a durable queue on the default
// exchange.
type AMQPChannel struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel amqpChannel
}

func NewAMQPChannel(url, queue string) (*AMQPChannel, error) {
	if url == "" {
		return nil, errors.New("amqp channel: empty url")
	}
	if queue == "" {
		return nil, errors.New("amqp channel: empty queue")
	}
	return &AMQPChannel{url: url, queue: queue}, nil
}

// connect dials and declares the queue. Callers hold a.mu.
func (a *AMQPChannel) connect() error {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(a.queue, durable, deleteWhenUnused, exclusive, noWait, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	a.conn = conn
	a.channel = ch
	return nil
}

func (a *AMQPChannel) isClosed() bool {
	if a.channel == nil {
		return true
	}
	return a.conn != nil && a.conn.IsClosed()
}

// Send publishes n, reconnecting once if the connection dropped.
func (a *AMQPChannel) Send(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("error encoding JSON message: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.isClosed() {
		if err := a.connect(); err != nil {
			return err
		}
	}
	return a.channel.PublishWithContext(ctx, "", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    n.OccurredAt,
		Type:         string(n.Kind),
		Body:         body,
	})
}

// Close releases the connection, if one was opened.
func (a *AMQPChannel) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.channel != nil {
		errs = append(errs, a.channel.Close())
		a.channel = nil
	}
	if a.conn != nil && !a.conn.IsClosed() {
		errs = append(errs, a.conn.Close())
	}
	a.conn = nil
	return errors.Join(errs...)
}
