package job

import (
	"context"
	"sync"
	"time"

	"github.com/ncobase/askflow/logging/logger"
)

// Event describes a committed state change. From is empty for creation.
type Event struct {
	JobID   string    `json:"job_id"`
	Kind    Kind      `json:"kind"`
	From    State     `json:"from,omitempty"`
	To      State     `json:"to"`
	Failure *Failure  `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Observer receives job events. Observe must not block for long; it runs on
// the goroutine that committed the change.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

type observers struct {
	mu   sync.RWMutex
	list []Observer
	log  *logger.Logger
}

func (o *observers) add(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

func (o *observers) notify(ctx context.Context, e Event) {
	o.mu.RLock()
	list := o.list
	o.mu.RUnlock()

	for _, obs := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error(ctx, "Job observer panicked", "event_to", e.To, "panic", r)
				}
			}()
			obs.Observe(ctx, e)
		}()
	}
}

func eventFor(rec *Record, from State) Event {
	return Event{
		JobID:   rec.ID,
		Kind:    rec.Kind,
		From:    from,
		To:      rec.State,
		Failure: rec.Error,
		At:      rec.UpdatedAt,
	}
}
