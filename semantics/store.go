package semantics

import (
	"context"
	"errors"
	"sync"
)

// ErrIndexNotFound reports that no index was saved under the id.
var ErrIndexNotFound = errors.New("semantics index not found")

// IndexStore keeps built indexes keyed by preparation id.
type IndexStore interface {
	Save(ctx context.Context, idx *Index) error
	Load(ctx context.Context, id string) (*Index, error)
	Delete(ctx context.Context, id string) error
}

// MemoryIndexStore is the in-process IndexStore.
type MemoryIndexStore struct {
	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewMemoryIndexStore creates an empty store.
func NewMemoryIndexStore() *MemoryIndexStore {
	return &MemoryIndexStore{indexes: make(map[string]*Index)}
}

func (s *MemoryIndexStore) Save(_ context.Context, idx *Index) error {
	if idx == nil || idx.ID == "" {
		return errors.New("index id is required")
	}
	s.mu.Lock()
	s.indexes[idx.ID] = idx
	s.mu.Unlock()
	return nil
}

// Load returns the stored index. Indexes are never mutated after Save, so
// the same pointer is shared between readers.
func (s *MemoryIndexStore) Load(_ context.Context, id string) (*Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[id]
	if !ok {
		return nil, ErrIndexNotFound
	}
	return idx, nil
}

func (s *MemoryIndexStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.indexes, id)
	s.mu.Unlock()
	return nil
}
