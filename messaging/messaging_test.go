package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	keys     []string
	topics   []string
	fail     bool
	closed   bool
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	p.messages = append(p.messages, body)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestNotifierPublishesEnvelopes(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, "jobs", time.Second, 8, logger.NewWithOutput(&bytes.Buffer{}))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n.Observe(context.Background(), job.Event{JobID: "j1", Kind: job.KindAsk, To: job.StatePending, At: at})
	n.Observe(context.Background(), job.Event{JobID: "j1", Kind: job.KindAsk, From: job.StatePending, To: job.StateRunning, At: at})
	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !pub.closed {
		t.Error("publisher not closed")
	}
	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.messages))
	}
	var env Envelope
	if err := json.Unmarshal(pub.messages[1], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !strings.HasPrefix(env.ID, "evt_") || len(env.ID) != len("evt_")+21 || env.Type != EventType {
		t.Errorf("envelope header = %s %s", env.ID, env.Type)
	}
	if env.Data.JobID != "j1" || env.Data.From != job.StatePending || env.Data.To != job.StateRunning {
		t.Errorf("envelope data = %+v", env.Data)
	}
	if pub.topics[0] != "jobs" || pub.keys[0] != "j1" {
		t.Errorf("topic/key = %s/%s", pub.topics[0], pub.keys[0])
	}
}

func TestNotifierSurvivesPublishErrors(t *testing.T) {
	var out bytes.Buffer
	pub := &recordingPublisher{fail: true}
	n := NewNotifier(pub, "jobs", time.Second, 8, logger.NewWithOutput(&out))

	n.Observe(context.Background(), job.Event{JobID: "j1", To: job.StateFailed})
	if err := n.Close(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out.Bytes(), []byte("Failed to publish job event")) {
		t.Errorf("publish error not logged: %s", out.String())
	}

	// events after Close are ignored
	n.Observe(context.Background(), job.Event{JobID: "j2"})
}

func TestNewPublisher(t *testing.T) {
	for _, cfg := range []*config.Messaging{nil, {Provider: config.MessagingNone}} {
		pub, err := NewPublisher(cfg, nil)
		if err != nil {
			t.Fatalf("NewPublisher(%+v) error = %v", cfg, err)
		}
		if _, ok := pub.(*LogPublisher); !ok {
			t.Errorf("NewPublisher(%+v) = %T", cfg, pub)
		}
	}
	if _, err := NewPublisher(&config.Messaging{Provider: "nats"}, nil); err == nil {
		t.Error("unknown provider accepted")
	}
	if _, err := NewPublisher(&config.Messaging{Provider: config.MessagingKafka, Kafka: &config.Kafka{}}, nil); err == nil {
		t.Error("kafka without brokers accepted")
	}
}
