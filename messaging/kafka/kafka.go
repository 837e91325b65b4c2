// Package kafka publishes messages with segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ncobase/askflow/config"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes messages to Kafka, retrying with exponential backoff.
type Publisher struct {
	writer     messageWriter
	timeout    time.Duration
	retries    int
	backoffMax time.Duration

	mu     sync.Mutex
	closed bool
}

// New creates a publisher for the configured brokers. Topics are chosen per
// message, so one writer serves every topic.
func New(cfg *config.Messaging) (*Publisher, error) {
	if cfg == nil || cfg.Kafka == nil || len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg), nil
}

func newPublisher(w messageWriter, cfg *config.Messaging) *Publisher {
	return &Publisher{
		writer:     w,
		timeout:    cfg.PublishTimeout,
		retries:    cfg.RetryAttempts,
		backoffMax: cfg.RetryBackoffMax,
	}
}

// Publish writes one message keyed by key so events of a job stay ordered
// within a partition.
func (p *Publisher) Publish(ctx context.Context, topic string, key, body []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return errors.New("kafka: publisher closed")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{Topic: topic, Key: key, Value: body, Time: time.Now()}
	backoff := 100 * time.Millisecond

	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if err = p.writer.WriteMessages(ctx, msg); err == nil {
			return nil
		}
		if attempt == p.retries {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka: publish: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if p.backoffMax > 0 && backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
	return fmt.Errorf("kafka: write failed after %d attempts: %w", p.retries+1, err)
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
