package worker

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/ncobase/askflow/config"
)

// ProviderSet is the wire provider set for the worker package.
var ProviderSet = wire.NewSet(ProvidePool)

// ProvidePool creates and starts a worker Pool from configuration.
// The cleanup function gracefully stops the pool when called.
func ProvidePool(c *config.Worker) (*Pool, func(), error) {
	cfg := DefaultConfig()
	if c != nil {
		cfg.MaxWorkers = c.MaxWorkers
		cfg.QueueSize = c.QueueSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	pool := NewPool(cfg)
	pool.Start()

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	}

	return pool, cleanup, nil
}
