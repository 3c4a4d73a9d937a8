// Package mapping implements a processor that renames keys in a
// map[string]interface{} payload, generalized from the teacher's
// MappingProcessor (which renamed tabular DataBatch columns) to a
// key-based remap usable on arbitrary record payloads.
package mapping

import (
	"context"
	"fmt"

	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginName is the registry key this processor registers under.
const PluginName = "mapping"

func init() {
	if err := plugin.GetRegistry().RegisterProcessor(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}

// Processor renames payload keys according to fieldMappings (old name ->
// new name). Records whose payload is not a map[string]interface{} pass
// through unchanged.
type Processor struct {
	fieldMappings map[string]string
}

// New builds a Processor.
func New(fieldMappings map[string]string) (*Processor, error) {
	if len(fieldMappings) == 0 {
		return nil, fmt.Errorf("%w: mapping: at least one field mapping is required", prepper.ErrInvalidConfiguration)
	}
	return &Processor{fieldMappings: fieldMappings}, nil
}

// NewFromSetting builds a Processor from a PluginSetting, reading
// "field_mappings" (a map of old field name to new field name, required).
func NewFromSetting(setting *prepper.PluginSetting) (prepper.Processor, error) {
	sub := setting.GetSubSetting("field_mappings")
	if sub == nil {
		return nil, fmt.Errorf("%w: mapping: field_mappings is required", prepper.ErrInvalidConfiguration)
	}
	raw := sub.Raw()
	mappings := make(map[string]string, len(raw))
	for oldName, newName := range raw {
		if s, ok := newName.(string); ok {
			mappings[oldName] = s
		}
	}
	return New(mappings)
}

// Execute renames keys in every map[string]interface{} payload in batch.
func (p *Processor) Execute(ctx context.Context, batch prepper.Batch) (prepper.Batch, error) {
	out := make(prepper.Batch, len(batch))
	for i, record := range batch {
		m, ok := record.Payload.(map[string]interface{})
		if !ok {
			out[i] = record
			continue
		}

		remapped := make(map[string]interface{}, len(m))
		for k, v := range m {
			if newKey, exists := p.fieldMappings[k]; exists {
				remapped[newKey] = v
			} else {
				remapped[k] = v
			}
		}
		out[i] = prepper.Record{Payload: remapped, Metadata: record.Metadata}
	}
	return out, nil
}
