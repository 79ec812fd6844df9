// Package amqpsink forwards notifier events to an AMQP topic exchange.
package amqpsink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tycooncore/internal/notify"
)

// DefaultExchange is used when no exchange name is configured.
const DefaultExchange = "tycoon.events"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the sink needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Sink publishes each event as a persistent JSON message routed by kind.
type Sink struct {
	ch       Channel
	conn     *amqp.Connection
	exchange string
	log      *slog.Logger
	now      func() time.Time
}

// New wraps an open channel and declares the exchange.
func New(ch Channel, exchange string, log *slog.Logger) (*Sink, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Sink{ch: ch, exchange: exchange, log: log, now: time.Now}, nil
}

// Dial connects to url, opens a channel and declares the exchange.
func Dial(url, exchange string, log *slog.Logger) (*Sink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	s, err := New(ch, exchange, log)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// RoutingKey is the topic key for events of kind k.
func RoutingKey(k notify.Kind) string { return "tycoon." + string(k) }

// Forward publishes a single event.
func (s *Sink) Forward(ctx context.Context, e notify.Event) error {
	at := s.now()
	body, err := notify.Encode(e, at)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKey(e.Kind()), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Type:         string(e.Kind()),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind(), err)
	}
	return nil
}

// Attach forwards every event published on n. Publish failures are logged.
func (s *Sink) Attach(n *notify.Notifier) (detach func()) {
	return n.Subscribe(func(e notify.Event) {
		if err := s.Forward(context.Background(), e); err != nil {
			s.log.Error("forward event", "kind", string(e.Kind()), "error", err)
		}
	})
}

// Close releases the channel and, when the sink dialed it, the connection.
func (s *Sink) Close() error {
	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
