// Package plugin implements the process-wide plugin registry: it maps a
// (name, capability) pair to a factory function and resolves live plugin
// instances from a prepper.PluginSetting at pipeline-construction time
// (spec.md §4.2). Registration happens once at startup from plugin
// package init() functions; lookups happen read-only afterward.
package plugin

import (
	"fmt"
	"sync"

	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// SourceFactory, BufferFactory, ProcessorFactory and SinkFactory construct
// a plugin instance from a PluginSetting whose pipeline name is already
// populated. Factories must not perform blocking I/O (network dial-out,
// file open) during construction — that belongs in Source.Start, not
// here.
type (
	SourceFactory    func(*prepper.PluginSetting) (prepper.Source, error)
	BufferFactory    func(*prepper.PluginSetting) (prepper.Buffer, error)
	ProcessorFactory func(*prepper.PluginSetting) (prepper.Processor, error)
	SinkFactory      func(*prepper.PluginSetting) (prepper.Sink, error)
)

// Registry maps plugin name to factory, per capability. Buffer is a
// closed set in practice (the bounded blocking buffer registers itself as
// "bounded_blocking"); Source, Processor and Sink stay open for
// additional reference plugins.
type Registry struct {
	mu         sync.RWMutex
	sources    map[string]SourceFactory
	buffers    map[string]BufferFactory
	processors map[string]ProcessorFactory
	sinks      map[string]SinkFactory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sources:    make(map[string]SourceFactory),
		buffers:    make(map[string]BufferFactory),
		processors: make(map[string]ProcessorFactory),
		sinks:      make(map[string]SinkFactory),
	}
}

// globalRegistry mirrors the teacher's package-level registration
// convenience: plugin packages register themselves from an init() against
// this single instance without a Registry reference threaded through
// main().
var globalRegistry = New()

// GetRegistry returns the process-wide registry populated by plugin
// package init() functions.
func GetRegistry() *Registry {
	return globalRegistry
}

// RegisterSource registers a source factory under name. Returns an error
// if name is already taken, since a silent overwrite would let a later
// import shadow an earlier one without anyone noticing.
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("plugin: source already registered: %s", name)
	}
	r.sources[name] = factory
	return nil
}

// RegisterBuffer registers a buffer factory under name.
func (r *Registry) RegisterBuffer(name string, factory BufferFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.buffers[name]; exists {
		return fmt.Errorf("plugin: buffer already registered: %s", name)
	}
	r.buffers[name] = factory
	return nil
}

// RegisterProcessor registers a processor factory under name.
func (r *Registry) RegisterProcessor(name string, factory ProcessorFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[name]; exists {
		return fmt.Errorf("plugin: processor already registered: %s", name)
	}
	r.processors[name] = factory
	return nil
}

// RegisterSink registers a sink factory under name.
func (r *Registry) RegisterSink(name string, factory SinkFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sinks[name]; exists {
		return fmt.Errorf("plugin: sink already registered: %s", name)
	}
	r.sinks[name] = factory
	return nil
}

// RegisterSourceInstance registers an already-constructed source under
// name, so every lookup of name returns that same instance instead of a
// fresh one from a factory (for example an inmemory source preloaded with
// records via SetRecords).
func (r *Registry) RegisterSourceInstance(name string, instance prepper.Source) error {
	return r.RegisterSource(name, func(*prepper.PluginSetting) (prepper.Source, error) {
		return instance, nil
	})
}

// NewSource resolves and constructs a source plugin by name.
func (r *Registry) NewSource(setting *prepper.PluginSetting) (prepper.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[setting.PluginName]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: source %q", prepper.ErrNoPluginFound, setting.PluginName)
	}
	logger.Debug("instantiating plugin", "capability", prepper.CapabilitySource, "plugin", setting.PluginName, "pipeline", setting.PipelineName)
	return factory(setting)
}

// NewBuffer resolves and constructs a buffer plugin by name.
func (r *Registry) NewBuffer(setting *prepper.PluginSetting) (prepper.Buffer, error) {
	r.mu.RLock()
	factory, exists := r.buffers[setting.PluginName]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: buffer %q", prepper.ErrNoPluginFound, setting.PluginName)
	}
	logger.Debug("instantiating plugin", "capability", prepper.CapabilityBuffer, "plugin", setting.PluginName, "pipeline", setting.PipelineName)
	return factory(setting)
}

// NewProcessor resolves and constructs a processor plugin by name.
func (r *Registry) NewProcessor(setting *prepper.PluginSetting) (prepper.Processor, error) {
	r.mu.RLock()
	factory, exists := r.processors[setting.PluginName]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: processor %q", prepper.ErrNoPluginFound, setting.PluginName)
	}
	logger.Debug("instantiating plugin", "capability", prepper.CapabilityProcessor, "plugin", setting.PluginName, "pipeline", setting.PipelineName)
	return factory(setting)
}

// NewSink resolves and constructs a sink plugin by name.
func (r *Registry) NewSink(setting *prepper.PluginSetting) (prepper.Sink, error) {
	r.mu.RLock()
	factory, exists := r.sinks[setting.PluginName]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: sink %q", prepper.ErrNoPluginFound, setting.PluginName)
	}
	logger.Debug("instantiating plugin", "capability", prepper.CapabilitySink, "plugin", setting.PluginName, "pipeline", setting.PipelineName)
	return factory(setting)
}

// ListSources returns all registered source plugin names.
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// ListProcessors returns all registered processor plugin names.
func (r *Registry) ListProcessors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	return names
}

// ListSinks returns all registered sink plugin names.
func (r *Registry) ListSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	return names
}

// HasSource reports whether name is registered as a source.
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[name]
	return exists
}
