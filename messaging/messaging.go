// Package messaging publishes job lifecycle events to a broker.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/nanoid"
)

// EventType is the type of every envelope published by the Notifier.
const EventType = "job.state_changed"

// ErrClosed is returned by publishers after Close.
var ErrClosed = errors.New("messaging: publisher closed")

// Publisher delivers one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, body []byte) error
	Close() error
}

// Envelope is the JSON document written to the broker.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       job.Event `json:"data"`
}

// NewEnvelope wraps e with a fresh event id.
func NewEnvelope(e job.Event) Envelope {
	return Envelope{ID: nanoid.EventID(), Type: EventType, OccurredAt: e.At, Data: e}
}

// Notifier is a job.Observer that forwards events to a Publisher from a
// background goroutine, so a slow broker never delays a job. Events that
// do not fit in the buffer are dropped and logged.
type Notifier struct {
	pub     Publisher
	topic   string
	timeout time.Duration
	log     *logger.Logger

	events  chan job.Event
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

var _ job.Observer = (*Notifier)(nil)

// NewNotifier starts forwarding to pub.
func NewNotifier(pub Publisher, topic string, timeout time.Duration, buffer int, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.StdLogger()
	}
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	n := &Notifier{
		pub:     pub,
		topic:   topic,
		timeout: timeout,
		log:     log,
		events:  make(chan job.Event, buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go n.loop()
	return n
}

// Observe implements job.Observer.
func (n *Notifier) Observe(ctx context.Context, e job.Event) {
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.events <- e:
	default:
		n.log.Warn(ctx, "Dropping job event, publish buffer full", "job_id", e.JobID, "to", e.To)
	}
}

func (n *Notifier) loop() {
	defer close(n.stopped)
	for {
		select {
		case e := <-n.events:
			n.publish(e)
		case <-n.done:
			// flush what is already buffered
			for {
				select {
				case e := <-n.events:
					n.publish(e)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) publish(e job.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	body, err := json.Marshal(NewEnvelope(e))
	if err != nil {
		n.log.Error(ctx, "Failed to encode job event", "job_id", e.JobID, "error", err)
		return
	}
	if err := n.pub.Publish(ctx, n.topic, []byte(e.JobID), body); err != nil {
		n.log.Error(ctx, "Failed to publish job event", "job_id", e.JobID, "to", e.To, "error", err)
	}
}

// Close stops accepting events, flushes the buffer and closes the publisher.
func (n *Notifier) Close() error {
	var err error
	n.once.Do(func() {
		close(n.done)
		<-n.stopped
		err = n.pub.Close()
	})
	return err
}

// LogPublisher writes messages to the logger instead of a broker.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.StdLogger()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, key, body []byte) error {
	p.log.Debug(ctx, "Job event", "topic", topic, "key", string(key), "body", string(body))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
