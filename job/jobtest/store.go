// Package jobtest holds the behaviour every job.Store must satisfy.
package jobtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ncobase/askflow/job"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) job.Store

// RunStoreTests runs the shared store suite against newStore.
func RunStoreTests(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s job.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CreateConflict", testCreateConflict},
		{"NotFound", testNotFound},
		{"TransitionPath", testTransitionPath},
		{"TransitionRejected", testTransitionRejected},
		{"TerminalIsFinal", testTerminalIsFinal},
		{"RequestCancel", testRequestCancel},
		{"ConcurrentTransition", testConcurrentTransition},
		{"ListActiveAndPurge", testListActiveAndPurge},
		{"Delete", testDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func mustCreate(t *testing.T, s job.Store, id string, kind job.Kind) *job.Record {
	t.Helper()
	rec, err := s.Create(context.Background(), id, kind)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
	return rec
}

func mustTransition(t *testing.T, s job.Store, id string, from, to job.State, out job.Outcome) *job.Record {
	t.Helper()
	rec, err := s.Transition(context.Background(), id, []job.State{from}, to, out)
	if err != nil {
		t.Fatalf("Transition(%s, %s->%s) error = %v", id, from, to, err)
	}
	return rec
}

func testCreateAndGet(t *testing.T, s job.Store) {
	created := mustCreate(t, s, "job-1", job.KindAsk)
	if created.State != job.StatePending || created.CancelRequested || created.Result != nil || created.Error != nil {
		t.Fatalf("unexpected new record: %+v", created)
	}

	got, err := s.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "job-1" || got.Kind != job.KindAsk || got.State != job.StatePending {
		t.Errorf("Get() = %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func testCreateConflict(t *testing.T, s job.Store) {
	mustCreate(t, s, "dup", job.KindPreparation)
	if _, err := s.Create(context.Background(), "dup", job.KindAsk); !errors.Is(err, job.ErrConflict) {
		t.Fatalf("second Create() error = %v, want ErrConflict", err)
	}
	got, _ := s.Get(context.Background(), "dup")
	if got.Kind != job.KindPreparation {
		t.Errorf("duplicate create overwrote record: %+v", got)
	}
}

func testNotFound(t *testing.T, s job.Store) {
	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Transition(ctx, "missing", []job.State{job.StatePending}, job.StateRunning, job.Outcome{}); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("Transition() error = %v, want ErrNotFound", err)
	}
	if err := s.RequestCancel(ctx, "missing"); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("RequestCancel() error = %v, want ErrNotFound", err)
	}
	if _, err := s.IsCancelRequested(ctx, "missing"); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("IsCancelRequested() error = %v, want ErrNotFound", err)
	}
}

func testTransitionPath(t *testing.T, s job.Store) {
	mustCreate(t, s, "prep", job.KindPreparation)
	mustTransition(t, s, "prep", job.StatePending, job.StateIndexing, job.Outcome{})
	done := mustTransition(t, s, "prep", job.StateIndexing, job.StateFinished, job.Outcome{
		Result: json.RawMessage(`{"models":2}`),
		// ignored outside FAILED
		Failure: job.Fail(job.CodeOthers, "x"),
	})
	if done.State != job.StateFinished || string(done.Result) != `{"models":2}` || done.Error != nil {
		t.Fatalf("finished record = %+v", done)
	}

	mustCreate(t, s, "ask", job.KindAsk)
	mustTransition(t, s, "ask", job.StatePending, job.StateRunning, job.Outcome{})
	failed := mustTransition(t, s, "ask", job.StateRunning, job.StateFailed, job.Outcome{
		Result:  json.RawMessage(`"ignored"`),
		Failure: job.Fail(job.CodeNoRelevantData, "nothing matched"),
	})
	if failed.Result != nil || failed.Error == nil || failed.Error.Code != job.CodeNoRelevantData {
		t.Fatalf("failed record = %+v", failed)
	}

	got, _ := s.Get(context.Background(), "ask")
	if got.Error == nil || got.Error.Message != "nothing matched" {
		t.Errorf("stored failure = %+v", got.Error)
	}
}

func testTransitionRejected(t *testing.T, s job.Store) {
	ctx := context.Background()
	mustCreate(t, s, "prep", job.KindPreparation)

	cases := []struct {
		from []job.State
		to   job.State
	}{
		// state mismatch
		{[]job.State{job.StateIndexing}, job.StateFinished},
		// skipping the in-progress state
		{[]job.State{job.StatePending}, job.StateFinished},
		// wrong in-progress state for the kind
		{[]job.State{job.StatePending}, job.StateRunning},
	}
	for _, c := range cases {
		if _, err := s.Transition(ctx, "prep", c.from, c.to, job.Outcome{}); !errors.Is(err, job.ErrInvalidTransition) {
			t.Errorf("Transition(%v -> %s) error = %v, want ErrInvalidTransition", c.from, c.to, err)
		}
	}

	mustTransition(t, s, "prep", job.StatePending, job.StateIndexing, job.Outcome{})
	if _, err := s.Transition(ctx, "prep", []job.State{job.StateIndexing}, job.StateStopped, job.Outcome{}); !errors.Is(err, job.ErrInvalidTransition) {
		t.Errorf("preparation must not reach STOPPED, error = %v", err)
	}

	got, _ := s.Get(ctx, "prep")
	if got.State != job.StateIndexing {
		t.Errorf("rejected transitions changed state to %s", got.State)
	}
}

func testTerminalIsFinal(t *testing.T, s job.Store) {
	ctx := context.Background()
	mustCreate(t, s, "ask", job.KindAsk)
	mustTransition(t, s, "ask", job.StatePending, job.StateRunning, job.Outcome{})
	mustTransition(t, s, "ask", job.StateRunning, job.StateStopped, job.Outcome{})

	all := []job.State{job.StatePending, job.StateRunning, job.StateIndexing, job.StateFinished, job.StateFailed, job.StateStopped}
	for _, to := range all {
		if _, err := s.Transition(ctx, "ask", all, to, job.Outcome{}); !errors.Is(err, job.ErrInvalidTransition) {
			t.Errorf("terminal job moved to %s, error = %v", to, err)
		}
	}
}

func testRequestCancel(t *testing.T, s job.Store) {
	ctx := context.Background()
	mustCreate(t, s, "ask", job.KindAsk)

	requested, err := s.IsCancelRequested(ctx, "ask")
	if err != nil || requested {
		t.Fatalf("IsCancelRequested() = %v, %v", requested, err)
	}
	for i := 0; i < 2; i++ {
		if err := s.RequestCancel(ctx, "ask"); err != nil {
			t.Fatalf("RequestCancel() #%d error = %v", i, err)
		}
	}
	requested, _ = s.IsCancelRequested(ctx, "ask")
	got, _ := s.Get(ctx, "ask")
	if !requested || !got.CancelRequested || got.State != job.StatePending {
		t.Errorf("after cancel: requested=%v record=%+v", requested, got)
	}

	mustCreate(t, s, "done", job.KindAsk)
	mustTransition(t, s, "done", job.StatePending, job.StateRunning, job.Outcome{})
	mustTransition(t, s, "done", job.StateRunning, job.StateFinished, job.Outcome{Result: json.RawMessage(`[]`)})
	if err := s.RequestCancel(ctx, "done"); err != nil {
		t.Fatalf("RequestCancel() on terminal error = %v", err)
	}
	got, _ = s.Get(ctx, "done")
	if got.State != job.StateFinished || string(got.Result) != `[]` {
		t.Errorf("cancel changed a terminal job: %+v", got)
	}
}

func testConcurrentTransition(t *testing.T, s job.Store) {
	mustCreate(t, s, "race", job.KindAsk)
	mustTransition(t, s, "race", job.StatePending, job.StateRunning, job.Outcome{})

	targets := []job.State{job.StateFinished, job.StateFailed, job.StateStopped}
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(to job.State) {
			defer wg.Done()
			_, err := s.Transition(context.Background(), "race", []job.State{job.StateRunning}, to, job.Outcome{
				Result:  json.RawMessage(`1`),
				Failure: job.Fail(job.CodeOthers, "f"),
			})
			if err == nil {
				wins.Add(1)
			} else if !errors.Is(err, job.ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}(targets[i%len(targets)])
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("%d transitions won, want exactly 1", wins.Load())
	}
	got, _ := s.Get(context.Background(), "race")
	if !got.State.IsTerminal() {
		t.Errorf("state = %s, want terminal", got.State)
	}
	if (got.Result != nil) == (got.Error != nil) && got.State != job.StateStopped {
		t.Errorf("result and error must be exclusive: %+v", got)
	}
}

func testListActiveAndPurge(t *testing.T, s job.Store) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustCreate(t, s, fmt.Sprintf("a%d", i), job.KindAsk)
	}
	mustTransition(t, s, "a1", job.StatePending, job.StateRunning, job.Outcome{})
	mustTransition(t, s, "a2", job.StatePending, job.StateRunning, job.Outcome{})
	mustTransition(t, s, "a2", job.StateRunning, job.StateStopped, job.Outcome{})

	active, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListActive() returned %d records, want 2", len(active))
	}

	n, err := s.Purge(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("Purge(past) = %d, %v; want 0", n, err)
	}
	n, err = s.Purge(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Purge(future) = %d, %v; want 1", n, err)
	}
	if _, err := s.Get(ctx, "a2"); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("purged record still readable: %v", err)
	}
	if _, err := s.Get(ctx, "a0"); err != nil {
		t.Errorf("active record purged: %v", err)
	}
}

func testDelete(t *testing.T, s job.Store) {
	ctx := context.Background()
	mustCreate(t, s, "gone", job.KindAsk)
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
	if _, err := s.Create(ctx, "gone", job.KindAsk); err != nil {
		t.Errorf("re-Create() after Delete error = %v", err)
	}
}
