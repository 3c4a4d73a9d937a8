// Package scheduler implements the periodic stats refresher (SPEC_FULL.md
// §4.12): a cron-driven background snapshot of every pipeline's
// worker/buffer statistics into a cache the control API's
// /metrics/prometheus endpoint reads, so an HTTP request never touches a live pipeline's
// buffer lock directly.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/manager"
	"github.com/dataprepper-go/pipeline/internal/worker"
)

// statsBuffer is implemented by buffers that expose occupancy counters
// (the reference BoundedBlockingBuffer does); buffer plugins that don't
// implement it simply report zero stats.
type statsBuffer interface {
	Stats() (inQueue, inFlight, capacity int)
}

// PipelineStats is one pipeline's stats snapshot as of the last refresh.
type PipelineStats struct {
	Name     string
	State    string
	InQueue  int
	InFlight int
	Capacity int
	Workers  []worker.State
}

// DefaultInterval is the stats refresh cadence (SPEC_FULL.md §4.12).
const DefaultInterval = "@every 10s"

// StatsRefresher periodically snapshots every pipeline owned by a
// manager.Manager into an in-memory cache.
type StatsRefresher struct {
	mu       sync.RWMutex
	cron     *cron.Cron
	mgr      *manager.Manager
	interval string
	cache    map[string]PipelineStats
	entryID  cron.EntryID
	running  bool
	log      *logger.Logger
}

// NewStatsRefresher constructs a StatsRefresher over mgr. An empty
// interval falls back to DefaultInterval.
func NewStatsRefresher(mgr *manager.Manager, interval string) *StatsRefresher {
	if interval == "" {
		interval = DefaultInterval
	}
	return &StatsRefresher{
		cron:     cron.New(),
		mgr:      mgr,
		interval: interval,
		cache:    make(map[string]PipelineStats),
		log:      logger.With("component", "scheduler"),
	}
}

// Start schedules the refresh job and runs one refresh immediately so the
// cache is populated before the first cron tick.
func (r *StatsRefresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("stats refresher already running")
	}

	entryID, err := r.cron.AddFunc(r.interval, r.refresh)
	if err != nil {
		return fmt.Errorf("scheduler: invalid refresh interval %q: %w", r.interval, err)
	}
	r.entryID = entryID
	r.cron.Start()
	r.running = true

	go r.refresh()

	r.log.Info("stats refresher started", "interval", r.interval)
	return nil
}

// Stop stops the cron scheduler and waits for any in-flight refresh to
// finish.
func (r *StatsRefresher) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("stats refresher is not running")
	}
	r.running = false
	r.mu.Unlock()

	ctx := r.cron.Stop()
	<-ctx.Done()

	r.log.Info("stats refresher stopped")
	return nil
}

// Snapshot returns the cached stats for every pipeline as of the last
// refresh.
func (r *StatsRefresher) Snapshot() []PipelineStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PipelineStats, 0, len(r.cache))
	for _, s := range r.cache {
		out = append(out, s)
	}
	return out
}

// refresh walks every pipeline known to the manager and rebuilds the
// cache. Runs on the cron goroutine (and once on its own goroutine
// launched by Start).
func (r *StatsRefresher) refresh() {
	fresh := make(map[string]PipelineStats)
	for _, name := range r.mgr.Names() {
		p := r.mgr.Pipeline(name)
		if p == nil {
			continue
		}
		stats := PipelineStats{Name: name, State: p.State().String()}
		if buf, ok := p.Buffer().(statsBuffer); ok {
			stats.InQueue, stats.InFlight, stats.Capacity = buf.Stats()
		}
		stats.Workers = p.Workers().SnapshotPipeline(name)
		fresh[name] = stats
	}

	r.mu.Lock()
	r.cache = fresh
	r.mu.Unlock()
}
