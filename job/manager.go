package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/askflow/concurrency/worker"
	"github.com/ncobase/askflow/ctxutil"
	"github.com/ncobase/askflow/logging/logger"
	"go.opentelemetry.io/otel/trace"
)

const defaultPollInterval = 200 * time.Millisecond

// Manager is the entry point for submitting, polling and stopping jobs.
// It never mutates records itself; all writes go through the Store.
type Manager struct {
	store     Store
	pool      *worker.Pool
	log       *logger.Logger
	worker    *Worker
	observers *observers

	mu      sync.RWMutex
	defs    map[Kind]Definition
	waiters map[string]chan struct{}

	pollInterval time.Duration
	reaper       *reaper
}

// Option configures a Manager.
type Option func(*Manager)

// WithPollInterval sets how often Await re-reads the store. Stores shared
// across processes need it since their transitions produce no local events.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// NewManager creates a manager that runs jobs on pool.
func NewManager(store Store, pool *worker.Pool, log *logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.StdLogger()
	}
	obs := &observers{log: log}
	m := &Manager{
		store:        store,
		pool:         pool,
		log:          log,
		observers:    obs,
		worker:       newWorker(store, log, obs),
		defs:         make(map[Kind]Definition),
		waiters:      make(map[string]chan struct{}),
		pollInterval: defaultPollInterval,
	}
	obs.add(ObserverFunc(m.release))
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register binds a routine to a kind. Registering a kind twice replaces the
// previous definition.
func (m *Manager) Register(def Definition) error {
	if !def.Kind.Valid() {
		return fmt.Errorf("unknown job kind %q", def.Kind)
	}
	if def.Routine == nil {
		return fmt.Errorf("routine for %s is nil", def.Kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs[def.Kind] = def
	return nil
}

// AddObserver registers an observer for job events. Observers added before
// Recover also see the jobs it fails.
func (m *Manager) AddObserver(obs Observer) {
	m.observers.add(obs)
}

// Submit validates input, creates a PENDING job and schedules it. It returns
// as soon as the job is queued; an empty id is replaced by a generated one.
func (m *Manager) Submit(ctx context.Context, kind Kind, input any, id string) (string, error) {
	m.mu.RLock()
	def, ok := m.defs[kind]
	m.mu.RUnlock()
	if !ok {
		return "", InvalidRequest("unsupported job kind %q", kind)
	}

	if def.Validate != nil {
		if err := def.Validate(input); err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				return "", err
			}
			return "", InvalidRequest("%s", err.Error())
		}
	}

	if id == "" {
		id = uuid.NewString()
	}

	rec, err := m.store.Create(ctx, id, kind)
	if err != nil {
		return "", err
	}

	traceID := ctxutil.GetTraceID(ctx)
	spanCtx := trace.SpanContextFromContext(ctx)
	// the creation event must reach observers before any worker event
	ready := make(chan struct{})
	task := func(pctx context.Context) error {
		<-ready
		runCtx := trace.ContextWithSpanContext(ctxutil.SetTraceID(pctx, traceID), spanCtx)
		m.worker.Run(runCtx, id, def, input)
		return nil
	}

	if err := m.pool.Submit(task); err != nil {
		if derr := m.store.Delete(ctxutil.Detach(ctx), id); derr != nil {
			m.log.Error(ctx, "Failed to roll back rejected job", "job_id", id, "error", derr)
		}
		m.log.Warn(ctx, "Job rejected", "job_id", id, "kind", kind, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.observers.notify(ctx, eventFor(rec, ""))
	close(ready)
	m.log.Info(ctx, "Job submitted", "job_id", id, "kind", kind)
	return id, nil
}

// GetStatus returns a snapshot of the job. It has no side effects.
func (m *Manager) GetStatus(ctx context.Context, id string) (*Record, error) {
	return m.store.Get(ctx, id)
}

// Stop requests cooperative cancellation and returns without waiting.
// Stopping a terminal job is a no-op; stopping a kind that is not
// cancellable is rejected.
func (m *Manager) Stop(ctx context.Context, id string) (*Record, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Kind.Cancellable() {
		return nil, InvalidRequest("%s jobs cannot be stopped", rec.Kind)
	}
	if err := m.store.RequestCancel(ctx, id); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "Job stop requested", "job_id", id, "state", rec.State)
	return m.store.Get(ctx, id)
}

// Await blocks until the job is terminal or ctx ends.
func (m *Manager) Await(ctx context.Context, id string) (*Record, error) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	defer m.forget(id)

	for {
		// register before reading so a transition between the read and
		// the wait still wakes us
		ch := m.waiter(id)
		rec, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.IsTerminal() {
			return rec, nil
		}
		select {
		case <-ch:
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *Manager) waiter(id string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.waiters[id]
	if !ok {
		ch = make(chan struct{})
		m.waiters[id] = ch
	}
	return ch
}

// forget drops the waiter of id. Other callers still waiting on it fall
// back to polling.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waiters, id)
}

// release wakes Await callers once a job turns terminal.
func (m *Manager) release(_ context.Context, e Event) {
	if !e.To.IsTerminal() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.waiters[e.JobID]; ok {
		close(ch)
		delete(m.waiters, e.JobID)
	}
}

// Recover fails jobs that a previous process left in a non-terminal state.
// It must run before new jobs are submitted to the same store.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	active, err := m.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active jobs: %w", err)
	}

	n := 0
	for _, rec := range active {
		if err := m.interrupt(ctx, rec); err != nil {
			m.log.Warn(ctx, "Failed to recover job", "job_id", rec.ID, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		m.log.Info(ctx, "Recovered interrupted jobs", "count", n)
	}
	return n, nil
}

// interrupt walks rec along legal edges to FAILED.
func (m *Manager) interrupt(ctx context.Context, rec *Record) error {
	inProgress := rec.Kind.InProgressState()
	if rec.State == StatePending {
		next, err := m.store.Transition(ctx, rec.ID, []State{StatePending}, inProgress, Outcome{})
		if err != nil {
			return err
		}
		m.observers.notify(ctx, eventFor(next, StatePending))
	}
	final, err := m.store.Transition(ctx, rec.ID, []State{inProgress}, StateFailed, Outcome{
		Failure: Fail(CodeInterrupted, "job was interrupted by a restart"),
	})
	if err != nil {
		return err
	}
	m.observers.notify(ctx, eventFor(final, inProgress))
	return nil
}

// Stats returns worker pool metrics plus whether the pool is saturated or idle.
func (m *Manager) Stats() map[string]any {
	stats := make(map[string]any)
	for k, v := range m.pool.GetMetrics() {
		stats[k] = v
	}
	stats["busy"] = m.pool.IsBusy()
	stats["idle"] = m.pool.IsIdle()
	return stats
}

// Close stops background maintenance. The pool is owned by the caller.
func (m *Manager) Close() {
	if m.reaper != nil {
		m.reaper.stop()
	}
}
