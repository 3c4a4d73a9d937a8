// Package inmemory implements a closed, pre-loaded source: it writes a
// fixed slice of records into the buffer once and exits. Used by
// end-to-end tests and as the simplest way to exercise a pipeline without
// external I/O.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginName is the registry key this source registers under.
const PluginName = "inmemory"

func init() {
	if err := plugin.GetRegistry().RegisterSource(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}

// Source writes Records, set via SetRecords before Start, into the
// buffer in order, then returns.
type Source struct {
	records      []prepper.Record
	writeTimeout time.Duration
	stopOnce     sync.Once
	stopped      chan struct{}
}

// New builds an inmemory Source with no records; call SetRecords before
// Start to give it something to emit.
func New() *Source {
	return &Source{writeTimeout: 5 * time.Second, stopped: make(chan struct{})}
}

// NewFromSetting builds an empty inmemory Source from a PluginSetting.
// There is no YAML-expressible way to populate an in-process slice, so
// tests construct a Source directly with New and SetRecords, then
// register it by instance via Registry.RegisterSourceInstance; this
// factory exists only so "inmemory" resolves in a config file that names
// it with no records (producing an immediately-empty source).
func NewFromSetting(setting *prepper.PluginSetting) (prepper.Source, error) {
	return New(), nil
}

// SetRecords sets the records this source writes on Start. Must be
// called before Start.
func (s *Source) SetRecords(records []prepper.Record) {
	s.records = records
}

// Start returns immediately; a goroutine writes every record to buf in
// order. ctx cancellation, Stop or a failed write end that goroutine
// early.
func (s *Source) Start(ctx context.Context, buf prepper.Buffer) error {
	go func() {
		for _, r := range s.records {
			select {
			case <-ctx.Done():
				return
			case <-s.stopped:
				return
			default:
			}
			if err := buf.Write(ctx, r, s.writeTimeout); err != nil {
				return
			}
		}
	}()
	return nil
}

// Stop requests cessation; idempotent and safe for concurrent callers.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}
