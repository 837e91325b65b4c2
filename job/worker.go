package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ncobase/askflow/ctxutil"
	"github.com/ncobase/askflow/logging/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ncobase/askflow/job"

// Worker executes one job: it claims the record, runs the routine and
// writes exactly one terminal state.
type Worker struct {
	store     Store
	log       *logger.Logger
	observers *observers
	tracer    trace.Tracer
}

func newWorker(store Store, log *logger.Logger, obs *observers) *Worker {
	return &Worker{
		store:     store,
		log:       log,
		observers: obs,
		tracer:    otel.Tracer(tracerName),
	}
}

type runResult struct {
	value any
	err   error
}

// Run executes the job id with def. It never returns an error: every
// failure is either recorded on the job or logged.
func (w *Worker) Run(ctx context.Context, id string, def Definition, input any) {
	ctx = ctxutil.SetJobID(ctx, id)
	ctx, span := w.tracer.Start(ctx, "job.run", trace.WithAttributes(
		attribute.String("job.id", id),
		attribute.String("job.kind", string(def.Kind)),
	))
	defer span.End()

	// store writes must land even when the run is interrupted
	sctx := ctxutil.Detach(ctx)

	inProgress := def.Kind.InProgressState()
	rec, err := w.store.Transition(sctx, id, []State{StatePending}, inProgress, Outcome{})
	if err != nil {
		// the record was removed or already claimed; nothing to run
		w.log.Warn(ctx, "Job could not be started", "error", err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	w.observers.notify(ctx, eventFor(rec, StatePending))
	w.log.Info(ctx, "Job started", "kind", def.Kind, "state", inProgress)

	res := w.execute(ctx, id, def, input)

	to, outcome := w.settle(def.Kind, res)
	final, err := w.store.Transition(sctx, id, []State{inProgress}, to, outcome)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			w.log.Warn(ctx, "Discarding job outcome", "target", to, "error", err)
		} else {
			w.log.Error(ctx, "Failed to record job outcome", "target", to, "error", err)
		}
		span.SetStatus(codes.Error, err.Error())
		return
	}

	w.observers.notify(ctx, eventFor(final, inProgress))
	span.SetAttributes(attribute.String("job.state", string(final.State)))
	switch final.State {
	case StateFailed:
		span.SetStatus(codes.Error, final.Error.Error())
		w.log.Warn(ctx, "Job failed", "code", final.Error.Code, "message", final.Error.Message)
	default:
		span.SetStatus(codes.Ok, "")
		w.log.Info(ctx, "Job completed", "state", final.State)
	}
}

// execute runs the routine, racing it against the timeout and the worker
// context. A routine that outlives the race keeps running in the
// background and its result is dropped.
func (w *Worker) execute(ctx context.Context, id string, def Definition, input any) runResult {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if def.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, def.Timeout)
	}
	defer cancel()

	probe := func() bool {
		requested, err := w.store.IsCancelRequested(ctxutil.Detach(ctx), id)
		if err != nil {
			w.log.Warn(ctx, "Cancel probe failed", "error", err)
			return false
		}
		return requested
	}

	done := make(chan runResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- runResult{err: fmt.Errorf("routine panicked: %v", r)}
			}
		}()
		v, err := def.Routine.Run(runCtx, input, probe)
		done <- runResult{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return runResult{err: Fail(CodeTimeout, "job exceeded %s", def.Timeout)}
		}
		return runResult{err: Fail(CodeInterrupted, "job interrupted by shutdown")}
	}
}

// settle maps a routine result to the terminal state and its payload.
func (w *Worker) settle(kind Kind, res runResult) (State, Outcome) {
	if res.err == nil {
		data, err := json.Marshal(res.value)
		if err != nil {
			return StateFailed, Outcome{Failure: Fail(CodeOthers, "encode result: %v", err)}
		}
		return StateFinished, Outcome{Result: data}
	}
	if errors.Is(res.err, ErrStopped) {
		if kind.Cancellable() {
			return StateStopped, Outcome{}
		}
		return StateFailed, Outcome{Failure: Fail(CodeOthers, "%s jobs cannot be stopped", kind)}
	}
	return StateFailed, Outcome{Failure: AsFailure(res.err)}
}
