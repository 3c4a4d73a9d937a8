// Package worker tracks the live state of worker goroutines running
// inside a pipeline, for introspection by the stats refresher whose
// snapshot backs the control API's /metrics/prometheus endpoint. Unlike a distributed worker pool, this registry
// never crosses a process boundary: it is written only by the goroutine
// it describes and read by anything holding a *Registry reference.
package worker

import (
	"sync"
	"time"
)

// Status is a worker goroutine's current activity.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusReading    Status = "reading"
	StatusProcessing Status = "processing"
	StatusSinking    Status = "sinking"
)

// State snapshots one worker goroutine at a point in time.
type State struct {
	PipelineName   string
	WorkerID       int
	Status         Status
	RecordsHandled uint64
	LastActive     time.Time
}

// entry is the mutable record behind one worker's slot, updated only by
// its owning goroutine.
type entry struct {
	mu    sync.Mutex
	state State
}

// Registry holds one entry per live worker goroutine, keyed by
// (pipeline name, worker id). Safe for concurrent reads from the control
// API while workers concurrently update their own entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]*entry
}

type key struct {
	pipeline string
	worker   int
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]*entry)}
}

// Register creates (or resets) the entry for a worker and returns a
// handle the worker uses to report its own status. Call once per worker
// goroutine at startup.
func (r *Registry) Register(pipelineName string, workerID int) *Handle {
	k := key{pipeline: pipelineName, worker: workerID}
	e := &entry{state: State{PipelineName: pipelineName, WorkerID: workerID, Status: StatusIdle, LastActive: time.Now()}}

	r.mu.Lock()
	r.entries[k] = e
	r.mu.Unlock()

	return &Handle{entry: e}
}

// Unregister removes a worker's entry, called once the worker goroutine
// returns.
func (r *Registry) Unregister(pipelineName string, workerID int) {
	r.mu.Lock()
	delete(r.entries, key{pipeline: pipelineName, worker: workerID})
	r.mu.Unlock()
}

// Snapshot returns a copy of every registered worker's current state.
func (r *Registry) Snapshot() []State {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	states := make([]State, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		states = append(states, e.state)
		e.mu.Unlock()
	}
	return states
}

// SnapshotPipeline returns the current state of every worker registered
// under pipelineName.
func (r *Registry) SnapshotPipeline(pipelineName string) []State {
	all := r.Snapshot()
	out := make([]State, 0, len(all))
	for _, s := range all {
		if s.PipelineName == pipelineName {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of currently registered worker goroutines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Handle lets a worker goroutine report its own status without taking
// the registry's lock.
type Handle struct {
	entry *entry
}

// SetStatus updates the worker's activity and bumps LastActive.
func (h *Handle) SetStatus(status Status) {
	h.entry.mu.Lock()
	h.entry.state.Status = status
	h.entry.state.LastActive = time.Now()
	h.entry.mu.Unlock()
}

// AddRecordsHandled increments the worker's processed-record counter.
func (h *Handle) AddRecordsHandled(n uint64) {
	h.entry.mu.Lock()
	h.entry.state.RecordsHandled += n
	h.entry.state.LastActive = time.Now()
	h.entry.mu.Unlock()
}
