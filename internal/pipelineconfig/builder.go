package pipelineconfig

import (
	"fmt"
	"time"

	"github.com/dataprepper-go/pipeline/internal/buffer"
	"github.com/dataprepper-go/pipeline/internal/connector"
	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/pipeline"
	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// edge is a directed connector link: sinkPipeline writes into
// sourcePipeline via a Connector.
type edge struct {
	sinkPipeline   string
	sourcePipeline string
}

// Builder resolves a pipelineconfig.File into Pipeline instances, in the
// order they should be started, against a plugin Registry. It does not
// start them.
type Builder struct {
	registry *plugin.Registry
}

// NewBuilder constructs a Builder against registry.
func NewBuilder(registry *plugin.Registry) *Builder {
	return &Builder{registry: registry}
}

// Build performs the two-phase construction from spec.md §4.6: allocate
// connectors for sink-references-a-pipeline edges, validate the
// resulting DAG (acyclic, no dangling references, every pipeline has at
// least one sink), then materialise pipelines in topological order
// (roots — real external sources — first). The returned slice is in
// build/start order.
func (b *Builder) Build(file File) ([]*pipeline.Pipeline, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	connectors, edges, err := b.allocateConnectors(file)
	if err != nil {
		return nil, err
	}

	order, err := topologicalOrder(file, edges)
	if err != nil {
		return nil, err
	}

	pipelines := make(map[string]*pipeline.Pipeline, len(file))
	ordered := make([]*pipeline.Pipeline, 0, len(file))
	for _, name := range order {
		block := file[name]
		p, err := b.materialisePipeline(name, block, connectors)
		if err != nil {
			return nil, err
		}
		pipelines[name] = p
		ordered = append(ordered, p)
	}

	return ordered, nil
}

// allocateConnectors implements phase 1: any sink block whose plugin
// name matches an existing pipeline name becomes a PipelineConnector
// registered under that target (source) pipeline. If the target
// pipeline's own source block names the same upstream pipeline, it is
// bound to the identical connector instance.
func (b *Builder) allocateConnectors(file File) (map[edge]*connector.Connector, []edge, error) {
	connectors := make(map[edge]*connector.Connector)
	var edges []edge

	for name, block := range file {
		for _, sink := range block.Sink {
			if _, isPipeline := file[sink.Name]; !isPipeline {
				continue
			}
			if sink.Name == name {
				return nil, nil, fmt.Errorf("%w: pipeline %q: connector cannot target itself", prepper.ErrInvalidConfiguration, name)
			}
			e := edge{sinkPipeline: name, sourcePipeline: sink.Name}
			if _, exists := connectors[e]; !exists {
				connectors[e] = connector.New(name, sink.Name)
				edges = append(edges, e)
			}
		}
	}

	// Validate that every pipeline whose source references another
	// pipeline name has a matching connector edge allocated above.
	for name, block := range file {
		upstream := block.Source.Name
		if _, isPipeline := file[upstream]; !isPipeline {
			continue
		}
		e := edge{sinkPipeline: upstream, sourcePipeline: name}
		if _, ok := connectors[e]; !ok {
			return nil, nil, fmt.Errorf("%w: pipeline %q: source references pipeline %q which has no matching sink connector", prepper.ErrInvalidConfiguration, name, upstream)
		}
	}

	return connectors, edges, nil
}

// topologicalOrder returns pipeline names ordered so that every
// pipeline's upstream connector source (if any) precedes it — i.e. roots
// (pipelines with a real external source) first. Returns
// InvalidConfiguration if the connector graph has a cycle.
func topologicalOrder(file File, edges []edge) ([]string, error) {
	inDegree := make(map[string]int, len(file))
	adjacency := make(map[string][]string, len(file))
	for name := range file {
		inDegree[name] = 0
	}
	for _, e := range edges {
		adjacency[e.sinkPipeline] = append(adjacency[e.sinkPipeline], e.sourcePipeline)
		inDegree[e.sourcePipeline]++
	}

	var queue []string
	for name := range file {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(file))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)
		for _, next := range adjacency[name] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(file) {
		return nil, fmt.Errorf("%w: cycle detected in pipeline connector DAG", prepper.ErrInvalidConfiguration)
	}
	return order, nil
}

func (b *Builder) materialisePipeline(name string, block PipelineBlock, connectors map[edge]*connector.Connector) (*pipeline.Pipeline, error) {
	source, err := b.resolveSource(name, block, connectors)
	if err != nil {
		return nil, err
	}

	buf, err := b.resolveBuffer(name, block)
	if err != nil {
		return nil, err
	}

	processors, err := b.resolveProcessors(name, block)
	if err != nil {
		return nil, err
	}

	sinks, err := b.resolveSinks(name, block, connectors)
	if err != nil {
		return nil, err
	}

	cfg := pipeline.DefaultConfig()
	if block.Workers > 0 {
		cfg.Workers = block.Workers
	}
	if block.Delay != nil {
		cfg.Delay = time.Duration(*block.Delay) * time.Millisecond
	}

	p, err := pipeline.New(name, source, buf, processors, sinks, cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", name, err)
	}
	logger.Debug("materialised pipeline", "pipeline", name, "workers", cfg.Workers)
	return p, nil
}

func (b *Builder) resolveSource(name string, block PipelineBlock, connectors map[edge]*connector.Connector) (prepper.Source, error) {
	if c, ok := connectors[edge{sinkPipeline: block.Source.Name, sourcePipeline: name}]; ok {
		return c, nil
	}
	setting, err := prepper.NewPluginSetting(block.Source.Name, name, block.Source.Options)
	if err != nil {
		return nil, err
	}
	src, err := b.registry.NewSource(setting)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: source %q: %w", name, block.Source.Name, err)
	}
	return src, nil
}

func (b *Builder) resolveBuffer(name string, block PipelineBlock) (prepper.Buffer, error) {
	pluginName := buffer.PluginName
	var options map[string]interface{}
	if block.Buffer != nil {
		pluginName = block.Buffer.Name
		options = block.Buffer.Options
	}
	setting, err := prepper.NewPluginSetting(pluginName, name, options)
	if err != nil {
		return nil, err
	}
	buf, err := b.registry.NewBuffer(setting)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: buffer %q: %w", name, pluginName, err)
	}
	return buf, nil
}

func (b *Builder) resolveProcessors(name string, block PipelineBlock) ([]prepper.Processor, error) {
	processors := make([]prepper.Processor, 0, len(block.Processor))
	for i, procBlock := range block.Processor {
		setting, err := prepper.NewPluginSetting(procBlock.Name, name, procBlock.Options)
		if err != nil {
			return nil, err
		}
		proc, err := b.registry.NewProcessor(setting)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: processor[%d] %q: %w", name, i, procBlock.Name, err)
		}
		processors = append(processors, proc)
	}
	return processors, nil
}

func (b *Builder) resolveSinks(name string, block PipelineBlock, connectors map[edge]*connector.Connector) ([]prepper.Sink, error) {
	sinks := make([]prepper.Sink, 0, len(block.Sink))
	for i, sinkBlock := range block.Sink {
		if c, ok := connectors[edge{sinkPipeline: name, sourcePipeline: sinkBlock.Name}]; ok {
			sinks = append(sinks, c)
			continue
		}
		setting, err := prepper.NewPluginSetting(sinkBlock.Name, name, sinkBlock.Options)
		if err != nil {
			return nil, err
		}
		sink, err := b.registry.NewSink(setting)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: sink[%d] %q: %w", name, i, sinkBlock.Name, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}
