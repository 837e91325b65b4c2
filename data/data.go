// Package data selects and owns the storage backends for jobs and indexes.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ncobase/askflow/config"
	rstore "github.com/ncobase/askflow/data/redis"
	"github.com/ncobase/askflow/data/sqlite"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/semantics"
	"github.com/redis/go-redis/v9"
)

// Data represents the data layer
type Data struct {
	Jobs    job.Store
	Indexes semantics.IndexStore

	db     *sql.DB
	rc     *redis.Client
	mu     sync.Mutex
	closed bool
}

// New opens the backends named by cfg. Connections shared by the job store
// and the index store are opened once.
func New(ctx context.Context, cfg *config.Data) (*Data, func(), error) {
	if cfg == nil {
		cfg = &config.Data{Store: config.StoreMemory, Index: config.StoreMemory}
	}
	d := &Data{}

	var err error
	switch cfg.Store {
	case "", config.StoreMemory:
		d.Jobs = job.NewMemoryStore()
	case config.StoreSQLite:
		if d.db, err = sqlite.Open(ctx, cfg.SQLite); err != nil {
			return nil, nil, err
		}
		if d.Jobs, err = sqlite.NewStore(ctx, d.db); err != nil {
			d.Close()
			return nil, nil, err
		}
	case config.StoreRedis:
		if err = d.redis(ctx, cfg.Redis); err != nil {
			return nil, nil, err
		}
		d.Jobs = rstore.NewStore(d.rc, cfg.Redis.KeyPrefix)
	default:
		return nil, nil, fmt.Errorf("data: unsupported job store %q", cfg.Store)
	}

	switch cfg.Index {
	case "", config.StoreMemory:
		d.Indexes = semantics.NewMemoryIndexStore()
	case config.StoreRedis:
		if err = d.redis(ctx, cfg.Redis); err != nil {
			d.Close()
			return nil, nil, err
		}
		d.Indexes = rstore.NewIndexStore(d.rc, cfg.Redis.KeyPrefix)
	default:
		d.Close()
		return nil, nil, fmt.Errorf("data: unsupported index store %q", cfg.Index)
	}

	cleanup := func() {
		if errs := d.Close(); len(errs) > 0 {
			fmt.Printf("data cleanup errors: %v\n", errs)
		}
	}
	return d, cleanup, nil
}

func (d *Data) redis(ctx context.Context, cfg *config.Redis) error {
	if d.rc != nil {
		return nil
	}
	rc, err := rstore.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	d.rc = rc
	return nil
}

// Health pings the opened connections.
func (d *Data) Health(ctx context.Context) map[string]any {
	services := map[string]any{}
	healthy := true

	if d.db != nil {
		if err := d.db.PingContext(ctx); err != nil {
			services["sqlite"] = err.Error()
			healthy = false
		} else {
			services["sqlite"] = "ok"
		}
	}
	if d.rc != nil {
		if err := d.rc.Ping(ctx).Err(); err != nil {
			services["redis"] = err.Error()
			healthy = false
		} else {
			services["redis"] = "ok"
		}
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	return map[string]any{
		"status":    status,
		"services":  services,
		"timestamp": time.Now().UTC(),
	}
}

// Close closes all data connections
func (d *Data) Close() []error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.Jobs != nil {
		if err := d.Jobs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.rc != nil {
		if err := d.rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
