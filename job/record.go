package job

import (
	"encoding/json"
	"time"
)

// Record is the durable description of one job.
//
// Result is set only in StateFinished and Error only in StateFailed.
// CancelRequested is set at most once and never cleared.
type Record struct {
	ID              string          `json:"id"`
	Kind            Kind            `json:"kind"`
	State           State           `json:"state"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *Failure        `json:"error,omitempty"`
	CancelRequested bool            `json:"cancel_requested"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Result != nil {
		c.Result = append(json.RawMessage(nil), r.Result...)
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

// IsTerminal reports whether the job has reached a final state.
func (r *Record) IsTerminal() bool {
	return r.State.IsTerminal()
}

// Outcome is the payload attached by a transition.
type Outcome struct {
	Result  json.RawMessage
	Failure *Failure
}

// NewRecord builds a PENDING record. Stores use it so every backend starts
// jobs the same way.
func NewRecord(id string, kind Kind, now time.Time) *Record {
	return &Record{
		ID:        id,
		Kind:      kind,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
