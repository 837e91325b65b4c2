package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ncobase/askflow/job"
	"github.com/redis/go-redis/v9"
)

const maxRetries = 16

// Store implements job.Store on Redis. Each record is a JSON value; the
// active set and the terminal sorted set (scored by update time) index them
// for recovery and purging. Mutations use WATCH/MULTI so they stay
// check-and-set across processes.
type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ job.Store = (*Store)(nil)

// NewStore creates a store whose keys start with prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "askflow"
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

func (s *Store) key(id string) string { return s.prefix + ":job:" + id }
func (s *Store) activeKey() string    { return s.prefix + ":jobs:active" }
func (s *Store) terminalKey() string  { return s.prefix + ":jobs:terminal" }

func (s *Store) Create(ctx context.Context, id string, kind job.Kind) (*job.Record, error) {
	rec := job.NewRecord(id, kind, s.now().UTC())
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	key := s.key(id)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", job.ErrConflict, id)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.activeKey(), id)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (*job.Record, error) {
	return s.load(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, g getter, id string) (*job.Record, error) {
	data, err := g.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get job: %w", err)
	}
	var rec job.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redis: decode job %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) Transition(ctx context.Context, id string, from []job.State, to job.State, outcome job.Outcome) (*job.Record, error) {
	key := s.key(id)
	var out *job.Record
	err := s.watch(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := job.ApplyTransition(rec, from, to, outcome, s.now().UTC()); err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if rec.IsTerminal() {
				pipe.SRem(ctx, s.activeKey(), id)
				pipe.ZAdd(ctx, s.terminalKey(), redis.Z{Score: float64(rec.UpdatedAt.Unix()), Member: id})
			}
			return nil
		})
		if err == nil {
			out = rec
		}
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) RequestCancel(ctx context.Context, id string) error {
	key := s.key(id)
	return s.watch(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec.IsTerminal() || rec.CancelRequested {
			return nil
		}
		rec.CancelRequested = true
		rec.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
}

func (s *Store) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return rec.CancelRequested, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.activeKey(), id)
		pipe.ZRem(ctx, s.terminalKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete job: %w", err)
	}
	if deleted.Val() == 0 {
		return fmt.Errorf("%w: %s", job.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListActive(ctx context.Context) ([]*job.Record, error) {
	ids, err := s.client.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list active jobs: %w", err)
	}
	out := make([]*job.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, job.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !rec.IsTerminal() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.terminalKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: find expired jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
		members[i] = id
	}
	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.terminalKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis: purge jobs: %w", err)
	}
	return int(deleted.Val()), nil
}

// Close is a no-op: the client is shared and closed by its owner.
func (s *Store) Close() error { return nil }

// watch runs fn under WATCH keys, retrying when a concurrent writer
// invalidated the transaction.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redis: too much contention on %v", keys)
}
