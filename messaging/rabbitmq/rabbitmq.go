// Package rabbitmq publishes messages to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ncobase/askflow/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes persistent messages with publisher confirms. The
// message topic is used as the routing key.
type Publisher struct {
	url      string
	exchange string

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// New connects to the broker and declares the exchange.
func New(cfg *config.Messaging) (*Publisher, error) {
	if cfg == nil || cfg.RabbitMQ == nil || cfg.RabbitMQ.URL == "" {
		return nil, errors.New("rabbitmq: url is empty")
	}
	p := &Publisher{url: cfg.RabbitMQ.URL, exchange: cfg.RabbitMQ.Exchange}
	if p.exchange == "" {
		p.exchange = "askflow"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connected must be called with mu held.
func (p *Publisher) connected() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed()
}

// connect must be called with mu held.
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-delete
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

// Publish sends body and waits for the broker to confirm it.
func (p *Publisher) Publish(ctx context.Context, topic string, key, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("rabbitmq: publisher closed")
	}
	if !p.connected() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	dc, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,
		topic,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: string(key),
			Body:          body,
		})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: wait for confirm: %w", err)
	}
	if !acked {
		return errors.New("rabbitmq: message was nacked")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
