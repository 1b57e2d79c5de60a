package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder copies every bus event onto a RabbitMQ topic exchange, using
// the event type as routing key. Broker failures are logged and dropped.
type AMQPForwarder struct {
	exchange string
	pub      publisher
	closers  []func() error

	unsubscribe func()
	done        chan struct{}
	stopOnce    sync.Once
}

// DialAMQP connects to the broker and declares a durable topic exchange.
func DialAMQP(url string, exchange string) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	forwarder := NewAMQPForwarder(ch, exchange)
	forwarder.closers = []func() error{ch.Close, conn.Close}
	return forwarder, nil
}

func NewAMQPForwarder(pub publisher, exchange string) *AMQPForwarder {
	return &AMQPForwarder{exchange: exchange, pub: pub, done: make(chan struct{})}
}

// Start subscribes to bus and forwards until Close is called.
func (f *AMQPForwarder) Start(bus Bus) {
	events, unsubscribe := bus.Subscribe()
	f.unsubscribe = unsubscribe

	go func() {
		defer close(f.done)
		for e := range events {
			if err := f.forward(e); err != nil {
				slog.Warn("event forward failed", "type", string(e.Type), "event_id", e.ID, "error", err)
			}
		}
	}()
}

func (f *AMQPForwarder) forward(e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return f.pub.PublishWithContext(ctx, f.exchange, string(e.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.Timestamp,
		Type:         string(e.Type),
		Body:         body,
	})
}

// Close stops forwarding, waits for in-flight events and releases the broker
// connection.
func (f *AMQPForwarder) Close() error {
	var firstErr error
	f.stopOnce.Do(func() {
		if f.unsubscribe != nil {
			f.unsubscribe()
			<-f.done
		}
		for _, closeFn := range f.closers {
			if err := closeFn(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
