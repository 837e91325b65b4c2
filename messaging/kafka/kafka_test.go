package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ncobase/askflow/config"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	failures int
	calls    int
	written  []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker unavailable")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testConfig() *config.Messaging {
	return &config.Messaging{
		PublishTimeout:  time.Second,
		RetryAttempts:   2,
		RetryBackoffMax: 5 * time.Millisecond,
	}
}

func TestPublishRetries(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newPublisher(w, testConfig())

	if err := p.Publish(context.Background(), "askflow.jobs", []byte("j1"), []byte(`{}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if w.calls != 3 {
		t.Errorf("calls = %d, want 3", w.calls)
	}
	if len(w.written) != 1 || w.written[0].Topic != "askflow.jobs" || string(w.written[0].Key) != "j1" {
		t.Errorf("written = %+v", w.written)
	}
}

func TestPublishGivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newPublisher(w, testConfig())

	if err := p.Publish(context.Background(), "t", nil, nil); err == nil {
		t.Fatal("Publish() succeeded")
	}
	if w.calls != 3 {
		t.Errorf("calls = %d, want 3", w.calls)
	}
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, testConfig())
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
	if err := p.Publish(context.Background(), "t", nil, nil); err == nil {
		t.Error("Publish() after Close succeeded")
	}
}

func TestNewRequiresBrokers(t *testing.T) {
	if _, err := New(&config.Messaging{Kafka: &config.Kafka{}}); err == nil {
		t.Fatal("New() without brokers succeeded")
	}
}
