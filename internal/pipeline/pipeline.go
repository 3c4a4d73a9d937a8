// Package pipeline implements the Pipeline orchestration core (spec.md
// §4.4): one source, one buffer, an ordered processor chain and one or
// more sinks, driven by a pool of worker goroutines under bounded
// concurrency with backpressure and checkpointing.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/worker"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// State is a Pipeline's lifecycle stage.
type State int32

const (
	StateCreated State = iota
	StateStarted
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateStarted:
		return "STARTED"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// closer is implemented by buffers that need to wake up blocked
// readers/writers on shutdown (the reference BoundedBlockingBuffer does).
// Buffer plugins that don't need it simply don't implement it.
type closer interface {
	Close()
}

// Config configures a Pipeline's runtime behaviour. Defaults mirror
// spec.md §4.4 (workers: 1, delay: 3000ms).
type Config struct {
	Workers       int
	ReadTimeout   time.Duration
	Delay         time.Duration
	DrainDeadline time.Duration
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		Workers:       1,
		ReadTimeout:   3 * time.Second,
		Delay:         3 * time.Second,
		DrainDeadline: 30 * time.Second,
	}
}

// Pipeline owns exactly one Source, one Buffer, an ordered processor
// chain, and one or more Sinks (spec.md §3).
type Pipeline struct {
	name       string
	source     prepper.Source
	buf        prepper.Buffer
	processors []prepper.Processor
	sinks      []prepper.Sink
	cfg        Config
	log        *logger.Logger
	workers    *worker.Registry

	state         int32 // atomic State
	stopRequested int32 // atomic bool
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// New constructs a Pipeline. Zero Workers, ReadTimeout and DrainDeadline
// fall back to DefaultConfig; a zero Delay disables the empty-read sleep,
// and only a negative Delay falls back to the default.
func New(name string, source prepper.Source, buf prepper.Buffer, processors []prepper.Processor, sinks []prepper.Sink, cfg Config) (*Pipeline, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: pipeline name must not be empty", prepper.ErrInvalidConfiguration)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("%w: pipeline %q has zero sinks", prepper.ErrInvalidConfiguration, name)
	}
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = defaults.Delay
	}
	if cfg.DrainDeadline <= 0 {
		cfg.DrainDeadline = defaults.DrainDeadline
	}
	return &Pipeline{
		name:       name,
		source:     source,
		buf:        buf,
		processors: processors,
		sinks:      sinks,
		cfg:        cfg,
		log:        logger.With("pipeline", name),
		workers:    worker.NewRegistry(),
		state:      int32(StateCreated),
	}, nil
}

// Name returns the pipeline's unique name.
func (p *Pipeline) Name() string { return p.name }

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State { return State(atomic.LoadInt32(&p.state)) }

// Workers exposes the pipeline's worker state registry, read by the
// stats refresher whose snapshot backs /metrics/prometheus.
func (p *Pipeline) Workers() *worker.Registry { return p.workers }

// Buffer exposes the pipeline's buffer, read by the stats refresher whose
// snapshot backs /metrics/prometheus.
func (p *Pipeline) Buffer() prepper.Buffer { return p.buf }

// Start invokes source.Start(buffer) then launches the worker pool.
// Idempotent-unsafe: calling Start twice on the same Pipeline is a bug in
// the caller (the DAG builder constructs each pipeline once and the
// manager starts it once).
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.source.Start(ctx, p.buf); err != nil {
		return fmt.Errorf("pipeline %q: source start: %w", p.name, err)
	}

	atomic.StoreInt32(&p.state, int32(StateStarted))
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.log.Info("pipeline started", "workers", p.cfg.Workers)
	return nil
}

// Stop executes the shutdown sequence from spec.md §4.4: stop the
// source, flip the stop flag, wait for workers to drain the buffer (up
// to DrainDeadline), shut down sinks, release the buffer (closing it when
// it implements closer). When DrainDeadline elapses first, Stop returns
// without waiting for workers still blocked in a sink. Idempotent.
func (p *Pipeline) Stop(ctx context.Context) error {
	var stopErr error
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(StateStopping))
		p.source.Stop()
		atomic.StoreInt32(&p.stopRequested, 1)

		drained := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-time.After(p.cfg.DrainDeadline):
			p.log.Warn("drain deadline elapsed, forcing shutdown with workers still running")
			if c, ok := p.buf.(closer); ok {
				c.Close()
			}
		}

		for _, sink := range p.sinks {
			if err := sink.Shutdown(); err != nil {
				p.log.Error("sink shutdown failed", "error", err)
			}
		}

		if c, ok := p.buf.(closer); ok {
			c.Close()
		}

		atomic.StoreInt32(&p.state, int32(StateStopped))
		p.log.Info("pipeline stopped")
	})
	return stopErr
}

// runWorker is the per-worker loop described in spec.md §4.4: read,
// apply the processor chain, fan out to sinks, checkpoint
// unconditionally, exit once stop has been requested and the buffer has
// fully drained.
func (p *Pipeline) runWorker(ctx context.Context, index int) {
	defer p.wg.Done()
	log := p.log.With("worker_id", index)

	handle := p.workers.Register(p.name, index)
	defer p.workers.Unregister(p.name, index)

	for {
		handle.SetStatus(worker.StatusReading)
		batch, checkpoint, err := p.buf.Read(ctx, p.cfg.ReadTimeout)
		if err != nil {
			// Buffer read interrupt during shutdown is treated as a
			// normal exit (spec.md §4.4 failure semantics).
			if p.stopping() {
				return
			}
			log.Debug("buffer read error", "error", err)
			continue
		}

		if batch.IsEmpty() {
			if p.stopping() && p.buf.IsEmpty() {
				return
			}
			handle.SetStatus(worker.StatusIdle)
			if p.cfg.Delay > 0 {
				time.Sleep(p.cfg.Delay)
			}
			continue
		}

		handle.SetStatus(worker.StatusProcessing)
		result := p.applyProcessors(ctx, log, batch)
		if !result.IsEmpty() {
			handle.SetStatus(worker.StatusSinking)
			p.fanOutToSinks(ctx, log, result)
		}
		handle.AddRecordsHandled(uint64(len(batch)))

		if err := p.buf.Checkpoint(checkpoint); err != nil {
			log.Error("checkpoint failed", "error", err)
		}

		if p.stopping() && p.buf.IsEmpty() {
			return
		}
	}
}

// applyProcessors runs the processor chain in order. A processor
// error/panic is logged and the whole batch is dropped (spec.md §4.3,
// §4.4 failure semantics) — the caller still checkpoints so backpressure
// clears.
func (p *Pipeline) applyProcessors(ctx context.Context, log *logger.Logger, batch prepper.Batch) (result prepper.Batch) {
	result = batch
	for i, proc := range p.processors {
		result = p.executeOneProcessor(ctx, log, proc, i, result)
		if result.IsEmpty() {
			return result
		}
	}
	return result
}

func (p *Pipeline) executeOneProcessor(ctx context.Context, log *logger.Logger, proc prepper.Processor, index int, batch prepper.Batch) (result prepper.Batch) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("processor panicked, dropping batch", "processor_index", index, "panic", r)
			result = prepper.Batch{}
		}
	}()

	out, err := proc.Execute(ctx, batch)
	if err != nil {
		log.Error("processor execution failed, dropping batch", "processor_index", index, "error", fmt.Errorf("%w: %v", prepper.ErrPluginExecutionError, err))
		return prepper.Batch{}
	}
	return out
}

// fanOutToSinks delivers result to every sink sequentially; a sink
// failure is logged and the worker continues to the remaining sinks
// (spec.md §4.3, §4.4).
func (p *Pipeline) fanOutToSinks(ctx context.Context, log *logger.Logger, result prepper.Batch) {
	for i, sink := range p.sinks {
		p.outputOneSink(ctx, log, sink, i, result)
	}
}

func (p *Pipeline) outputOneSink(ctx context.Context, log *logger.Logger, sink prepper.Sink, index int, batch prepper.Batch) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("sink panicked", "sink_index", index, "panic", r)
		}
	}()
	if err := sink.Output(ctx, batch); err != nil {
		log.Error("sink output failed", "sink_index", index, "error", fmt.Errorf("%w: %v", prepper.ErrPluginExecutionError, err))
	}
}

func (p *Pipeline) stopping() bool {
	return atomic.LoadInt32(&p.stopRequested) == 1
}
