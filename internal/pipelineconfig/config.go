// Package pipelineconfig implements the pipeline parser and DAG builder
// (spec.md §4.6): it decodes the top-level pipeline-name → pipeline-block
// YAML mapping, resolves inter-pipeline connector edges, validates the
// resulting DAG, and materialises pipelines in topological order.
package pipelineconfig

import (
	"fmt"

	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginBlock is `{ <plugin-name>: <options-map> }` — a single-key YAML
// mapping naming the registry key and its options.
type PluginBlock struct {
	Name    string
	Options map[string]interface{}
}

// UnmarshalYAML decodes a PluginBlock from its single-key map form.
func (p *PluginBlock) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("plugin block: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("%w: plugin block must have exactly one key, got %d", prepper.ErrInvalidConfiguration, len(raw))
	}
	for name, opts := range raw {
		p.Name = name
		p.Options = opts
	}
	return nil
}

// PipelineBlock is one pipeline's configuration node (spec.md §6).
type PipelineBlock struct {
	Source    PluginBlock   `yaml:"source"`
	Buffer    *PluginBlock  `yaml:"buffer,omitempty"`
	Processor []PluginBlock `yaml:"processor,omitempty"`
	Sink      []PluginBlock `yaml:"sink"`
	Workers   int           `yaml:"workers,omitempty"`
	// Delay is milliseconds between empty reads, default 3000. A nil
	// pointer means the key was omitted (use the default); an explicit
	// "delay: 0" disables the empty-read sleep entirely (spec.md §4.4).
	Delay *int `yaml:"delay,omitempty"`
}

// File is the top-level pipeline configuration document: a mapping of
// pipeline name to its configuration block.
type File map[string]PipelineBlock

// Validate checks the structural requirements spec.md §4.6 calls fatal
// before any pipeline starts: a pipeline must declare a source and at
// least one sink.
func (f File) Validate() error {
	for name, block := range f {
		if block.Source.Name == "" {
			return fmt.Errorf("%w: pipeline %q: source is required", prepper.ErrInvalidConfiguration, name)
		}
		if len(block.Sink) == 0 {
			return fmt.Errorf("%w: pipeline %q: at least one sink is required", prepper.ErrInvalidConfiguration, name)
		}
	}
	return nil
}
