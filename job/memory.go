package job

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is the default store and
// loses every job on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, id string, kind Kind) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrConflict, id)
	}
	rec := NewRecord(id, kind, s.now())
	s.records[id] = rec
	return rec.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, from []State, to State, outcome Outcome) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// apply to a copy so a rejected transition leaves no trace
	next := rec.Clone()
	if err := ApplyTransition(next, from, to, outcome, s.now()); err != nil {
		return nil, err
	}
	s.records[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) RequestCancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.IsTerminal() || rec.CancelRequested {
		return nil
	}
	rec.CancelRequested = true
	rec.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) IsCancelRequested(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.CancelRequested, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.records {
		if !rec.IsTerminal() {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, rec := range s.records {
		if rec.IsTerminal() && rec.UpdatedAt.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
