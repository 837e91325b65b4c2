package job

import "fmt"

// State is the lifecycle state of a job.
//
// Every job starts PENDING, moves to the in-progress state of its kind and
// then to exactly one terminal state. Terminal states never change.
type State string

const (
	StatePending  State = "PENDING"
	StateIndexing State = "INDEXING"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	StateFailed   State = "FAILED"
	StateStopped  State = "STOPPED"
)

// IsTerminal reports whether s is a final state.
func (s State) IsTerminal() bool {
	switch s {
	case StateFinished, StateFailed, StateStopped:
		return true
	default:
		return false
	}
}

// ParseState parses a stored state value.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StatePending, StateIndexing, StateRunning, StateFinished, StateFailed, StateStopped:
		return st, nil
	default:
		return "", fmt.Errorf("unknown job state %q", s)
	}
}

// Kind identifies which state machine and routine a job uses.
type Kind string

const (
	KindPreparation Kind = "preparation"
	KindAsk         Kind = "ask"
)

type machine struct {
	inProgress  State
	cancellable bool
	edges       map[State][]State
}

var machines = map[Kind]machine{
	KindPreparation: {
		inProgress: StateIndexing,
		edges: map[State][]State{
			StatePending:  {StateIndexing},
			StateIndexing: {StateFinished, StateFailed},
		},
	},
	KindAsk: {
		inProgress:  StateRunning,
		cancellable: true,
		edges: map[State][]State{
			StatePending: {StateRunning},
			StateRunning: {StateFinished, StateFailed, StateStopped},
		},
	},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := machines[k]
	return ok
}

// InProgressState returns the state a job of this kind holds while its routine runs.
func (k Kind) InProgressState() State {
	return machines[k].inProgress
}

// Cancellable reports whether jobs of this kind accept stop requests.
func (k Kind) Cancellable() bool {
	return machines[k].cancellable
}

// ParseKind parses a stored kind value.
func ParseKind(s string) (Kind, error) {
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// CanTransition reports whether from -> to is a legal edge for kind.
func CanTransition(kind Kind, from, to State) bool {
	m, ok := machines[kind]
	if !ok {
		return false
	}
	for _, next := range m.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}
