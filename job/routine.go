package job

import (
	"context"
	"time"
)

// CancelProbe reports whether a stop was requested for the running job.
type CancelProbe func() bool

// Routine is the work a job delegates to.
//
// Cancellation is cooperative: a routine should call probe between steps and
// return ErrStopped once it reports true. A routine that never checks the
// probe runs to completion and its job ends FINISHED or FAILED even when a
// stop was requested. ctx is cancelled on timeout or forced shutdown.
type Routine interface {
	Run(ctx context.Context, input any, probe CancelProbe) (any, error)
}

// RoutineFunc adapts a function to Routine.
type RoutineFunc func(ctx context.Context, input any, probe CancelProbe) (any, error)

// Run implements Routine.
func (f RoutineFunc) Run(ctx context.Context, input any, probe CancelProbe) (any, error) {
	return f(ctx, input, probe)
}

// Definition binds a kind to its routine.
type Definition struct {
	Kind    Kind
	Routine Routine
	// Validate rejects unusable input synchronously at submission. Errors
	// that do not wrap ErrInvalidRequest are wrapped into it.
	Validate func(input any) error
	// Timeout bounds one run; 0 means no limit.
	Timeout time.Duration
}
