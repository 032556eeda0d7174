package eventpublisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iho/fundledger/internal/domain"
)

// DefaultConfirmTimeout bounds the wait for a broker ack.
const DefaultConfirmTimeout = 5 * time.Second

var (
	// ErrPublishNacked is returned when the broker rejects a message.
	ErrPublishNacked = errors.New("amqp: publish nacked by broker")
	// ErrConfirmTimeout is returned when no ack arrives in time.
	ErrConfirmTimeout = errors.New("amqp: confirm timeout")
	// ErrPublisherClosed is returned after Close or when the channel dies.
	ErrPublisherClosed = errors.New("amqp: publisher closed")
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange with publisher
// confirms. The routing key is the event type.
type AMQPPublisher struct {
	mu             sync.Mutex
	conn           *amqp.Connection
	ch             Channel
	confirms       chan amqp.Confirmation
	exchange       string
	confirmTimeout time.Duration
	closed         bool
	logger         zerolog.Logger
}

// DialAMQP connects to url and prepares exchange.
func DialAMQP(url, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	pub, err := NewAMQPPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	pub.conn = conn

	return pub, nil
}

// NewAMQPPublisher declares exchange on ch and switches it to confirm mode.
func NewAMQPPublisher(ch Channel, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &AMQPPublisher{
		ch:             ch,
		confirms:       ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange:       exchange,
		confirmTimeout: DefaultConfirmTimeout,
		logger:         logger.With().Str("component", "amqp").Str("exchange", exchange).Logger(),
	}, nil
}

// Publish sends event and waits for the broker ack. Calls are serialized so
// each confirmation matches its publish.
func (p *AMQPPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.CreatedAt,
		Type:         event.EventType,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.EventType, false, false, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	select {
	case confirmed, ok := <-p.confirms:
		if !ok {
			p.closed = true
			return ErrPublisherClosed
		}
		if !confirmed.Ack {
			return fmt.Errorf("%w: delivery_tag=%d", ErrPublishNacked, confirmed.DeliveryTag)
		}
		p.logger.Debug().Str("event_id", event.ID).Msg("event confirmed")
		return nil
	case <-timer.C:
		return ErrConfirmTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel and the connection when owned.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed && p.ch == nil {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	p.ch = nil
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
