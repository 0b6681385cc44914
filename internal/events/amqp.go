// Package events publishes campaign events (message sent, contact
// responded, batch completed) to a RabbitMQ topic exchange so that CRMs and
// dashboards can follow the campaign without polling the admin API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Topology names. Events go to a durable topic exchange; the audit queue
// keeps a copy of every outreach.* event and dead-letters rejected ones.
const (
	DefaultExchange = "ex.outreach"
	AuditQueue      = "q.outreach.events"
	DLXName         = "ex.outreach.dlx"
	DLQName         = "q.outreach.events.dlq"
	BindingKey      = "outreach.#"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events as persistent messages. It
// implements services.Publisher.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	now      func() time.Time

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Dial connects to url, declares the topology and returns a publisher.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	p, err := NewAMQPPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares the topology on ch and wraps it.
func NewAMQPPublisher(ch Channel, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := setupTopology(ch, exchange); err != nil {
		return nil, fmt.Errorf("amqp topology: %w", err)
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, now: time.Now}, nil
}

func setupTopology(ch Channel, exchange string) error {
	if err := ch.ExchangeDeclare(DLXName, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, "", DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	args := amqp.Table{"x-dead-letter-exchange": DLXName}
	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(AuditQueue, BindingKey, exchange, false, nil)
}

// Publish marshals payload to JSON and publishes it under routingKey.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now().UTC(),
		Type:         routingKey,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	log.Debug().Str("routing_key", routingKey).Int("bytes", len(body)).Msg("event published")
	return nil
}

// Close closes the channel and, when the publisher owns it, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// LogPublisher writes events to the debug log. It stands in when no broker
// is configured.
type LogPublisher struct{}

// Publish logs the event.
func (LogPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	log.Debug().Str("routing_key", routingKey).Interface("payload", payload).Msg("event")
	return nil
}
