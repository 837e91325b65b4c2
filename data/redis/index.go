package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ncobase/askflow/semantics"
	"github.com/redis/go-redis/v9"
)

// IndexStore keeps semantic indexes as JSON values so every replica sharing
// the server can answer asks for any preparation.
type IndexStore struct {
	client *redis.Client
	prefix string
}

var _ semantics.IndexStore = (*IndexStore)(nil)

// NewIndexStore creates an index store whose keys start with prefix.
func NewIndexStore(client *redis.Client, prefix string) *IndexStore {
	if prefix == "" {
		prefix = "askflow"
	}
	return &IndexStore{client: client, prefix: prefix}
}

func (s *IndexStore) key(id string) string { return s.prefix + ":index:" + id }

func (s *IndexStore) Save(ctx context.Context, idx *semantics.Index) error {
	if idx == nil || idx.ID == "" {
		return errors.New("index id is required")
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index %s: %w", idx.ID, err)
	}
	return s.client.Set(ctx, s.key(idx.ID), data, 0).Err()
}

func (s *IndexStore) Load(ctx context.Context, id string) (*semantics.Index, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, semantics.ErrIndexNotFound
	}
	if err != nil {
		return nil, err
	}
	var idx semantics.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", id, err)
	}
	return &idx, nil
}

func (s *IndexStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}
