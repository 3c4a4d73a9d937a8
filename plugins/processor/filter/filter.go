// Package filter implements a processor that includes or excludes
// records based on a named predicate over Record.Payload, generalized
// from the teacher's FilterProcessor (which matched "field operator
// value" expressions against tabular DataBatch columns) to arbitrary
// Record.Payload shapes via a predicate function registered by name.
package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginName is the registry key this processor registers under.
const PluginName = "filter"

func init() {
	if err := plugin.GetRegistry().RegisterProcessor(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}

// Predicate reports whether a record's payload matches a named filter
// condition.
type Predicate func(payload interface{}) bool

var (
	predicatesMu sync.RWMutex
	predicates   = map[string]Predicate{
		"non_nil": func(payload interface{}) bool { return payload != nil },
	}
)

// RegisterPredicate makes a named predicate available to configuration
// files via the "condition" option. Safe to call from an init()
// function alongside this package's own registration.
func RegisterPredicate(name string, predicate Predicate) {
	predicatesMu.Lock()
	defer predicatesMu.Unlock()
	predicates[name] = predicate
}

func lookupPredicate(name string) (Predicate, bool) {
	predicatesMu.RLock()
	defer predicatesMu.RUnlock()
	p, ok := predicates[name]
	return p, ok
}

// Mode selects whether matching records are kept or dropped.
type Mode string

const (
	ModeInclude Mode = "include"
	ModeExclude Mode = "exclude"
)

// Processor filters a batch in place using its configured predicate and
// mode.
type Processor struct {
	predicate Predicate
	mode      Mode
}

// New builds a Processor.
func New(predicate Predicate, mode Mode) (*Processor, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: filter: condition is required", prepper.ErrInvalidConfiguration)
	}
	if mode != ModeInclude && mode != ModeExclude {
		return nil, fmt.Errorf("%w: filter: invalid mode %q, must be %q or %q", prepper.ErrInvalidConfiguration, mode, ModeInclude, ModeExclude)
	}
	return &Processor{predicate: predicate, mode: mode}, nil
}

// NewFromSetting builds a Processor from a PluginSetting, reading
// "condition" (a predicate name registered via RegisterPredicate,
// required) and "mode" ("include" or "exclude", default "include").
func NewFromSetting(setting *prepper.PluginSetting) (prepper.Processor, error) {
	conditionName := setting.GetString("condition", "")
	predicate, ok := lookupPredicate(conditionName)
	if !ok {
		return nil, fmt.Errorf("%w: filter: unknown condition %q", prepper.ErrInvalidConfiguration, conditionName)
	}
	mode := Mode(setting.GetString("mode", string(ModeInclude)))
	return New(predicate, mode)
}

// Execute keeps or drops each record depending on whether its payload
// matches the predicate and the configured mode.
func (p *Processor) Execute(ctx context.Context, batch prepper.Batch) (prepper.Batch, error) {
	out := make(prepper.Batch, 0, len(batch))
	for _, record := range batch {
		match := p.predicate(record.Payload)
		keep := (p.mode == ModeInclude && match) || (p.mode == ModeExclude && !match)
		if keep {
			out = append(out, record)
		}
	}
	return out, nil
}
