package job

import (
	"context"

	"github.com/google/wire"
	"github.com/ncobase/askflow/concurrency/worker"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/logging/logger"
)

// ProviderSet is the wire provider set for the job package.
var ProviderSet = wire.NewSet(ProvideManager)

// ProvideManager creates the manager, fails jobs orphaned by a previous
// process and starts the reaper. Observers are attached first so they see
// recovered jobs too, and the pool is built after them so it drains
// before they are closed.
func ProvideManager(store Store, observers []Observer, pool *worker.Pool, log *logger.Logger, cfg *config.Jobs) (*Manager, func(), error) {
	var opts []Option
	if cfg != nil {
		opts = append(opts, WithPollInterval(cfg.PollInterval))
	}
	m := NewManager(store, pool, log, opts...)
	for _, obs := range observers {
		m.AddObserver(obs)
	}
	if cfg != nil {
		if cfg.RecoverOnStart {
			if _, err := m.Recover(context.Background()); err != nil {
				return nil, nil, err
			}
		}
		m.StartReaper(cfg.ReapInterval, cfg.Retention)
	}
	return m, m.Close, nil
}
