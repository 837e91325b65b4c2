package job

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Store is the single owner of job records.
//
// Implementations must make Transition an atomic check-and-set: the state is
// compared with from and replaced by to as one step, so concurrent writers
// cannot both succeed. Reads return copies.
type Store interface {
	// Create inserts a PENDING record, failing with ErrConflict if id exists.
	Create(ctx context.Context, id string, kind Kind) (*Record, error)
	// Get returns a copy of the record or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// Transition moves the job to `to` when its state is one of from and the
	// edge is legal for its kind, attaching outcome. It fails with
	// ErrInvalidTransition otherwise and ErrNotFound for unknown ids.
	Transition(ctx context.Context, id string, from []State, to State, outcome Outcome) (*Record, error)
	// RequestCancel sets the cancel flag. It is idempotent and a no-op for
	// terminal jobs.
	RequestCancel(ctx context.Context, id string) error
	// IsCancelRequested reads the cancel flag.
	IsCancelRequested(ctx context.Context, id string) (bool, error)
	// Delete removes a record regardless of state.
	Delete(ctx context.Context, id string) error
	// ListActive returns all non-terminal records.
	ListActive(ctx context.Context) ([]*Record, error)
	// Purge deletes terminal records last updated before the cutoff.
	Purge(ctx context.Context, before time.Time) (int, error)
	// Close releases backend resources.
	Close() error
}

// ApplyTransition validates a transition against rec and applies it in place.
// Every Store calls it inside its atomic section.
func ApplyTransition(rec *Record, from []State, to State, outcome Outcome, now time.Time) error {
	if !slices.Contains(from, rec.State) {
		return fmt.Errorf("%w: job %s is %s, expected one of %v", ErrInvalidTransition, rec.ID, rec.State, from)
	}
	if !CanTransition(rec.Kind, rec.State, to) {
		return fmt.Errorf("%w: %s job %s cannot move from %s to %s", ErrInvalidTransition, rec.Kind, rec.ID, rec.State, to)
	}

	rec.State = to
	rec.UpdatedAt = now
	switch to {
	case StateFinished:
		rec.Result = append([]byte(nil), outcome.Result...)
		if rec.Result == nil {
			rec.Result = []byte("null")
		}
	case StateFailed:
		f := outcome.Failure
		if f == nil {
			f = &Failure{Code: CodeOthers, Message: "job failed"}
		}
		rec.Error = &Failure{Code: f.Code, Message: f.Message}
	}
	return nil
}
