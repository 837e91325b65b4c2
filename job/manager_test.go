package job

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ncobase/askflow/concurrency/worker"
	"github.com/ncobase/askflow/logging/logger"
)

type testEnv struct {
	store   *MemoryStore
	pool    *worker.Pool
	manager *Manager
}

func newTestEnv(t *testing.T, defs ...Definition) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	pool := worker.NewPool(&worker.Config{MaxWorkers: 4, QueueSize: 16})
	pool.Start()

	m := NewManager(store, pool, logger.NewWithOutput(io.Discard), WithPollInterval(10*time.Millisecond))
	for _, def := range defs {
		if err := m.Register(def); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	t.Cleanup(func() {
		m.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	})
	return &testEnv{store: store, pool: pool, manager: m}
}

func await(t *testing.T, m *Manager, id string) *Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := m.Await(ctx, id)
	if err != nil {
		t.Fatalf("Await(%s) error = %v", id, err)
	}
	return rec
}

func returning(v any, err error) RoutineFunc {
	return func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		return v, err
	}
}

// untilStopped loops on the probe and reports it started through the channel.
func untilStopped(started chan<- struct{}) RoutineFunc {
	return func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		close(started)
		for {
			if probe() {
				return nil, ErrStopped
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
}

func TestSubmitRunsToFinished(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindPreparation, Routine: returning(map[string]int{"models": 3}, nil)})

	id, err := env.manager.Submit(context.Background(), KindPreparation, "mdl", "prep-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "prep-1" {
		t.Errorf("Submit() id = %q, want caller id", id)
	}

	rec := await(t, env.manager, id)
	if rec.State != StateFinished || string(rec.Result) != `{"models":3}` || rec.Error != nil {
		t.Fatalf("record = %+v", rec)
	}
}

func TestSubmitGeneratesID(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: returning([]string{}, nil)})

	id, err := env.manager.Submit(context.Background(), KindAsk, nil, "")
	if err != nil || id == "" {
		t.Fatalf("Submit() = %q, %v", id, err)
	}
	if rec := await(t, env.manager, id); rec.State != StateFinished {
		t.Errorf("state = %s", rec.State)
	}
}

func TestRoutineFailureIsRecorded(t *testing.T) {
	env := newTestEnv(t,
		Definition{Kind: KindAsk, Routine: returning(nil, Fail(CodeNoRelevantData, "no model matched"))},
		Definition{Kind: KindPreparation, Routine: returning(nil, errors.New("disk full"))},
	)
	ctx := context.Background()

	askID, _ := env.manager.Submit(ctx, KindAsk, nil, "")
	prepID, _ := env.manager.Submit(ctx, KindPreparation, nil, "")

	ask := await(t, env.manager, askID)
	if ask.State != StateFailed || ask.Error.Code != CodeNoRelevantData || ask.Result != nil {
		t.Errorf("ask record = %+v", ask)
	}
	prep := await(t, env.manager, prepID)
	if prep.State != StateFailed || prep.Error.Code != CodeOthers || prep.Error.Message != "disk full" {
		t.Errorf("preparation record = %+v", prep)
	}
}

func TestRoutinePanicFailsJob(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: RoutineFunc(func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		panic("kaboom")
	})})

	id, _ := env.manager.Submit(context.Background(), KindAsk, nil, "")
	rec := await(t, env.manager, id)
	if rec.State != StateFailed || rec.Error.Code != CodeOthers {
		t.Fatalf("record = %+v", rec)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t, Definition{
		Kind:    KindAsk,
		Routine: returning(nil, nil),
		Validate: func(input any) error {
			if s, _ := input.(string); s == "" {
				return errors.New("query is required")
			}
			return nil
		},
	})
	ctx := context.Background()

	_, err := env.manager.Submit(ctx, KindAsk, "", "bad")
	if !errors.Is(err, ErrInvalidRequest) || err.Error() != "query is required" {
		t.Fatalf("Submit() error = %v, want invalid request with detail", err)
	}
	if _, err := env.store.Get(ctx, "bad"); !errors.Is(err, ErrNotFound) {
		t.Error("rejected submission left a record")
	}

	if _, err := env.manager.Submit(ctx, KindPreparation, "x", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("unregistered kind error = %v", err)
	}
}

func TestSubmitDuplicateID(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: returning(nil, nil)})
	ctx := context.Background()

	if _, err := env.manager.Submit(ctx, KindAsk, nil, "same"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if _, err := env.manager.Submit(ctx, KindAsk, nil, "same"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Submit() error = %v, want ErrConflict", err)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	store := NewMemoryStore()
	// never started, so the single slot stays occupied
	pool := worker.NewPool(&worker.Config{MaxWorkers: 1, QueueSize: 1})
	m := NewManager(store, pool, logger.NewWithOutput(io.Discard))
	_ = m.Register(Definition{Kind: KindAsk, Routine: returning(nil, nil)})
	ctx := context.Background()

	if _, err := m.Submit(ctx, KindAsk, nil, "first"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if _, err := m.Submit(ctx, KindAsk, nil, "second"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("second Submit() error = %v, want ErrUnavailable", err)
	}
	if _, err := store.Get(ctx, "second"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected job left a record: %v", err)
	}
	if rec, _ := store.Get(ctx, "first"); rec.State != StatePending {
		t.Errorf("queued job state = %s, want PENDING", rec.State)
	}
}

func TestStopAsk(t *testing.T) {
	started := make(chan struct{})
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: untilStopped(started)})
	ctx := context.Background()

	id, _ := env.manager.Submit(ctx, KindAsk, nil, "")
	<-started

	rec, err := env.manager.Stop(ctx, id)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !rec.CancelRequested {
		t.Error("Stop() should return the record with the cancel flag set")
	}

	final := await(t, env.manager, id)
	if final.State != StateStopped || final.Result != nil || final.Error != nil {
		t.Fatalf("record = %+v", final)
	}

	// stopping again is a no-op
	again, err := env.manager.Stop(ctx, id)
	if err != nil || again.State != StateStopped {
		t.Errorf("second Stop() = %+v, %v", again, err)
	}
}

func TestConcurrentStopIsIdempotent(t *testing.T) {
	started := make(chan struct{})
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: untilStopped(started)})
	ctx := context.Background()

	stopped := make(chan Event, 8)
	env.manager.AddObserver(ObserverFunc(func(_ context.Context, e Event) {
		if e.To == StateStopped {
			stopped <- e
		}
	}))

	id, err := env.manager.Submit(ctx, KindAsk, nil, "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.manager.Stop(ctx, id); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Stop() error = %v", err)
	}

	if final := await(t, env.manager, id); final.State != StateStopped {
		t.Fatalf("final state = %s, want STOPPED", final.State)
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("no STOPPED event observed")
	}
	select {
	case e := <-stopped:
		t.Errorf("job reached STOPPED twice: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopBeforeRoutineStarts(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: RoutineFunc(func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		<-gate
		if probe() {
			return nil, ErrStopped
		}
		return "answer", nil
	})})
	ctx := context.Background()

	id, _ := env.manager.Submit(ctx, KindAsk, nil, "")
	if _, err := env.manager.Stop(ctx, id); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	close(gate)

	if rec := await(t, env.manager, id); rec.State != StateStopped {
		t.Fatalf("state = %s, want STOPPED", rec.State)
	}
}

func TestStopIgnoredByRoutine(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: RoutineFunc(func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		<-gate
		return "done anyway", nil
	})})
	ctx := context.Background()

	id, _ := env.manager.Submit(ctx, KindAsk, nil, "")
	_, _ = env.manager.Stop(ctx, id)
	close(gate)

	rec := await(t, env.manager, id)
	if rec.State != StateFinished || !rec.CancelRequested {
		t.Fatalf("record = %+v, want FINISHED with cancel flag", rec)
	}
}

func TestStopTerminalDoesNotRegress(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: returning([]string{"SELECT 1"}, nil)})
	ctx := context.Background()

	id, _ := env.manager.Submit(ctx, KindAsk, nil, "")
	before := await(t, env.manager, id)

	after, err := env.manager.Stop(ctx, id)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if after.State != StateFinished || string(after.Result) != string(before.Result) || after.CancelRequested {
		t.Fatalf("terminal job changed: before %+v after %+v", before, after)
	}
}

func TestStopPreparationRejected(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, Definition{Kind: KindPreparation, Routine: RoutineFunc(func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		<-gate
		return nil, nil
	})})
	ctx := context.Background()

	id, _ := env.manager.Submit(ctx, KindPreparation, nil, "")
	if _, err := env.manager.Stop(ctx, id); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Stop() error = %v, want ErrInvalidRequest", err)
	}
	close(gate)
	if rec := await(t, env.manager, id); rec.State != StateFinished || rec.CancelRequested {
		t.Fatalf("record = %+v", rec)
	}
}

func TestUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.manager.GetStatus(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStatus() error = %v", err)
	}
	if _, err := env.manager.Stop(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stop() error = %v", err)
	}
	if _, err := env.manager.Await(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Await() error = %v", err)
	}
}

func TestTimeoutFailsJob(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	env := newTestEnv(t, Definition{
		Kind:    KindAsk,
		Timeout: 20 * time.Millisecond,
		Routine: RoutineFunc(func(ctx context.Context, input any, probe CancelProbe) (any, error) {
			// ignores ctx on purpose; its late result must be discarded
			<-release
			return "late", nil
		}),
	})

	id, _ := env.manager.Submit(context.Background(), KindAsk, nil, "")
	rec := await(t, env.manager, id)
	if rec.State != StateFailed || rec.Error.Code != CodeTimeout {
		t.Fatalf("record = %+v", rec)
	}
}

func TestPollingSeesMonotonicStates(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, Definition{Kind: KindPreparation, Routine: RoutineFunc(func(ctx context.Context, input any, probe CancelProbe) (any, error) {
		<-gate
		return "ok", nil
	})})
	ctx := context.Background()
	order := []State{StatePending, StateIndexing, StateFinished}

	id, _ := env.manager.Submit(ctx, KindPreparation, nil, "")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := -1
			for {
				rec, err := env.manager.GetStatus(ctx, id)
				if err != nil {
					t.Errorf("GetStatus() error = %v", err)
					return
				}
				idx := slices.Index(order, rec.State)
				if idx < last {
					t.Errorf("state regressed from %s to %s", order[last], rec.State)
					return
				}
				last = idx
				if rec.IsTerminal() {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	close(gate)
	wg.Wait()
}

func TestObserverReceivesLifecycle(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: returning("ok", nil)})

	var mu sync.Mutex
	var seen []State
	env.manager.AddObserver(ObserverFunc(func(ctx context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.To)
	}))

	id, _ := env.manager.Submit(context.Background(), KindAsk, nil, "")
	await(t, env.manager, id)

	mu.Lock()
	defer mu.Unlock()
	want := []State{StatePending, StateRunning, StateFinished}
	if !slices.Equal(seen, want) {
		t.Errorf("events = %v, want %v", seen, want)
	}
}

func TestRecoverFailsOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _ = env.store.Create(ctx, "queued", KindPreparation)
	_, _ = env.store.Create(ctx, "running", KindAsk)
	_, _ = env.store.Transition(ctx, "running", []State{StatePending}, StateRunning, Outcome{})
	_, _ = env.store.Create(ctx, "done", KindAsk)
	_, _ = env.store.Transition(ctx, "done", []State{StatePending}, StateRunning, Outcome{})
	_, _ = env.store.Transition(ctx, "done", []State{StateRunning}, StateFinished, Outcome{Result: json.RawMessage(`1`)})

	n, err := env.manager.Recover(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Recover() = %d, %v; want 2", n, err)
	}
	for _, id := range []string{"queued", "running"} {
		rec, _ := env.store.Get(ctx, id)
		if rec.State != StateFailed || rec.Error.Code != CodeInterrupted {
			t.Errorf("%s = %+v", id, rec)
		}
	}
	if rec, _ := env.store.Get(ctx, "done"); rec.State != StateFinished {
		t.Errorf("finished job touched: %+v", rec)
	}
}

func TestPurgeExpired(t *testing.T) {
	env := newTestEnv(t, Definition{Kind: KindAsk, Routine: returning("ok", nil)})
	ctx := context.Background()

	id, _ := env.manager.Submit(ctx, KindAsk, nil, "")
	await(t, env.manager, id)

	if n := env.manager.PurgeExpired(ctx, time.Hour); n != 0 {
		t.Fatalf("PurgeExpired() removed %d fresh jobs", n)
	}

	env.store.mu.Lock()
	env.store.records[id].UpdatedAt = time.Now().Add(-2 * time.Hour)
	env.store.mu.Unlock()

	if n := env.manager.PurgeExpired(ctx, time.Hour); n != 1 {
		t.Fatalf("PurgeExpired() = %d, want 1", n)
	}
	if _, err := env.manager.GetStatus(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired job still present: %v", err)
	}
}
