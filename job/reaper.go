package job

import (
	"context"
	"sync"
	"time"
)

type reaper struct {
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func (r *reaper) stop() {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

// StartReaper periodically purges terminal jobs older than retention.
// A zero retention or interval disables it.
func (m *Manager) StartReaper(interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 || m.reaper != nil {
		return
	}
	r := &reaper{done: make(chan struct{})}
	m.reaper = r

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				m.PurgeExpired(context.Background(), retention)
			}
		}
	}()
}

// PurgeExpired deletes terminal jobs last updated more than retention ago.
func (m *Manager) PurgeExpired(ctx context.Context, retention time.Duration) int {
	n, err := m.store.Purge(ctx, time.Now().Add(-retention))
	if err != nil {
		m.log.Error(ctx, "Failed to purge expired jobs", "error", err)
		return 0
	}
	if n > 0 {
		m.log.Info(ctx, "Purged expired jobs", "count", n)
	}
	return n
}
