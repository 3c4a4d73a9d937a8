// Package manager implements the process-wide pipeline supervisor
// (spec.md §4.7): it owns the set of pipelines built by
// pipelineconfig.Builder, starts them, and on shutdown walks the DAG in
// forward topological order so roots (pipelines with a real external
// source) stop first and in-flight records drain toward sinks before a
// downstream pipeline's connector source is torn down.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dataprepper-go/pipeline/internal/database"
	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/pipeline"
)

// Manager owns an immutable, ordered set of pipelines. order is the
// build/start order returned by pipelineconfig.Builder.Build (upstream
// pipelines before the downstream pipelines whose source is a connector
// fed by them); shutdown walks it forward so the same upstream-before-
// downstream order holds on the way down.
type Manager struct {
	mu      sync.RWMutex
	order   []*pipeline.Pipeline
	byName  map[string]*pipeline.Pipeline
	started bool
	log     *logger.Logger
	store   database.MetadataStore // optional; nil disables audit recording
}

// New constructs a Manager over pipelines, which must already be in
// build/start order (as returned by pipelineconfig.Builder.Build).
func New(pipelines []*pipeline.Pipeline) *Manager {
	byName := make(map[string]*pipeline.Pipeline, len(pipelines))
	for _, p := range pipelines {
		byName[p.Name()] = p
	}
	return &Manager{
		order:  pipelines,
		byName: byName,
		log:    logger.With("component", "manager"),
	}
}

// SetStore attaches a MetadataStore that receives a PipelineRunRecord for
// every start/stop/start-failure transition. Optional: a nil store (the
// default) simply skips audit recording.
func (m *Manager) SetStore(store database.MetadataStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

func (m *Manager) recordEvent(pipelineName, event, detail string) {
	if m.store == nil {
		return
	}
	if err := m.store.RecordPipelineEvent(database.PipelineRunRecord{
		PipelineName: pipelineName,
		Event:        event,
		Detail:       detail,
		Timestamp:    time.Now(),
	}); err != nil {
		m.log.Error("failed to record pipeline audit event", "pipeline", pipelineName, "event", event, "error", err)
	}
}

// Start starts every pipeline in order. If a pipeline fails to start,
// every pipeline already started is stopped, roots first, before the
// error is returned, so a failed startup never leaves a partial set of
// pipelines running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.order {
		if err := p.Start(ctx); err != nil {
			m.log.Error("pipeline failed to start, rolling back", "pipeline", p.Name(), "error", err)
			m.recordEvent(p.Name(), "start_failed", err.Error())
			m.stopRange(ctx, m.order[:i])
			return fmt.Errorf("pipeline %q: %w", p.Name(), err)
		}
		m.recordEvent(p.Name(), "started", "")
	}
	m.started = true
	m.log.Info("all pipelines started", "count", len(m.order))
	return nil
}

// Shutdown stops every pipeline in forward topological order — roots
// (pipelines with a real external source) first — waiting for each to
// reach STOPPED (bounded by its own DrainDeadline) before moving to the
// next. Stopping a root first lets its workers drain its buffer and
// flush through any downstream connector before that connector's source
// side is torn down; stopping downstream first would close the shared
// connector out from under an upstream pipeline still writing to it,
// turning every further Output call into ErrClosed and stranding
// in-flight records. Safe to call once startup has completed or
// partially completed.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopRange(ctx, m.order)
	m.started = false
	m.log.Info("all pipelines stopped")
}

// stopRange stops pipelines in forward order (roots first). Called with
// mu held.
func (m *Manager) stopRange(ctx context.Context, pipelines []*pipeline.Pipeline) {
	for _, p := range pipelines {
		if err := p.Stop(ctx); err != nil {
			m.log.Error("pipeline stop failed", "pipeline", p.Name(), "error", err)
		}
		m.recordEvent(p.Name(), "stopped", "")
	}
}

// ListRunningPipelines returns the names of pipelines currently in the
// STARTED state.
func (m *Manager) ListRunningPipelines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.order))
	for _, p := range m.order {
		if p.State() == pipeline.StateStarted {
			names = append(names, p.Name())
		}
	}
	return names
}

// IsRunning reports whether any pipeline is in the STARTED state.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.order {
		if p.State() == pipeline.StateStarted {
			return true
		}
	}
	return false
}

// Pipeline returns the pipeline registered under name, or nil if none
// matches, for the control API's per-pipeline introspection.
func (m *Manager) Pipeline(name string) *pipeline.Pipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byName[name]
}

// Names returns every known pipeline name in build order, regardless of
// current state.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.order))
	for _, p := range m.order {
		names = append(names, p.Name())
	}
	return names
}
