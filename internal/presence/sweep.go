package presence

import (
	"context"
	"log"
	"time"
)

// Sweep timing defaults. Both are configurable via roost.yml.
const (
	DefaultSweepInterval = 30 * time.Second
	DefaultStaleTimeout  = 120 * time.Second
)

// Sweeper periodically scans the registry and flags agents whose last-seen
// timestamp exceeds the stale timeout. The sweep is observability only:
// it logs and marks, but actual removal stays tied to the transport
// disconnect event.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration
}

// NewSweeper creates a sweeper over the given registry. Non-positive
// durations fall back to the defaults.
func NewSweeper(registry *Registry, interval, timeout time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = DefaultStaleTimeout
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		timeout:  timeout,
	}
}

// Run executes the sweep loop until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[INFO] Presence sweeper running (interval=%s timeout=%s)", s.interval, s.timeout)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[DEBUG] Presence sweeper exited cleanly")
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

// sweepOnce flags every agent whose last-seen timestamp is older than the
// stale timeout.
func (s *Sweeper) sweepOnce() {
	cutoff := s.registry.nowMs() - s.timeout.Milliseconds()

	for _, agent := range s.registry.List() {
		if agent.Stale || agent.LastSeenMs > cutoff {
			continue
		}
		if marked := s.registry.markStale(agent.ID); marked != nil {
			log.Printf("[WARN] Agent %s (%s) is stale: last seen %dms ago",
				marked.Label, marked.ID, s.registry.nowMs()-marked.LastSeenMs)
		}
	}
}
