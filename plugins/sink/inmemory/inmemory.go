// Package inmemory implements a thread-safe list sink (spec.md §8's "list
// sink"): it appends every record it receives to an in-memory slice,
// letting tests assert on exactly what reached a pipeline's sink.
package inmemory

import (
	"context"
	"sync"

	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginName is the registry key this sink registers under.
const PluginName = "inmemory"

func init() {
	if err := plugin.GetRegistry().RegisterSink(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}

// Sink collects every record it receives, guarded by a mutex since it is
// written concurrently by every worker goroutine fanning out to it.
type Sink struct {
	mu      sync.Mutex
	records []prepper.Record
}

// New builds an empty Sink.
func New() *Sink {
	return &Sink{}
}

// NewFromSetting builds an empty Sink, ignoring options.
func NewFromSetting(setting *prepper.PluginSetting) (prepper.Sink, error) {
	return New(), nil
}

// Output appends batch to the collected records.
func (s *Sink) Output(ctx context.Context, batch prepper.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, batch...)
	return nil
}

// Shutdown is a no-op; the Sink holds no external resources.
func (s *Sink) Shutdown() error { return nil }

// Records returns a copy of every record collected so far.
func (s *Sink) Records() []prepper.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]prepper.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records collected so far.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
