// Package connector implements PipelineConnector (spec.md §4.5): a
// dual-role component registered as the sink of one pipeline (the
// "sink-pipeline") and the source of another (the "source-pipeline"),
// linking them by forwarding every batch it receives into the
// source-pipeline's buffer.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// writeTimeout is the "effectively unbounded" timeout used for each
// record write into the downstream buffer, so that backpressure from a
// full downstream buffer propagates upstream by blocking the connector's
// Output call (spec.md §4.5, §9 "backpressure over drop").
const writeTimeout = 24 * time.Hour

// Connector implements both prepper.Source and prepper.Sink over the
// downstream pipeline's buffer. Its source face is passive — Start only
// records the buffer reference it will later write into; records never
// arrive through the source face directly. Its sink face is active —
// Output is invoked by the upstream (sink-)pipeline's workers.
type Connector struct {
	sinkPipelineName   string
	sourcePipelineName string

	mu       sync.RWMutex
	buf      prepper.Buffer
	shutdown bool

	log *logger.Logger
}

// New constructs a Connector linking sinkPipelineName (the pipeline that
// writes into this connector) to sourcePipelineName (the pipeline whose
// buffer this connector writes into). Both names must be set before
// either pipeline starts (spec.md §3 invariant).
func New(sinkPipelineName, sourcePipelineName string) *Connector {
	return &Connector{
		sinkPipelineName:   sinkPipelineName,
		sourcePipelineName: sourcePipelineName,
		log: logger.With(
			"component", "connector",
			"sink_pipeline", sinkPipelineName,
			"source_pipeline", sourcePipelineName,
		),
	}
}

// Start implements prepper.Source. It is a no-op producer: it only
// records the downstream buffer reference that Output will later write
// into; it never produces records on its own.
func (c *Connector) Start(ctx context.Context, buf prepper.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = buf
	return nil
}

// Stop implements prepper.Source and doubles as the connector's shutdown
// hook (spec.md §9 Open Question (c)): it releases the buffer reference
// and flips a latch so that subsequent Output calls fail fatally instead
// of writing into a buffer whose owning pipeline is being torn down.
// Idempotent and safe to call concurrently with Output.
func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.shutdown = true
	c.buf = nil
	c.log.Info("connector shut down, rejecting further output")
}

// Output implements prepper.Sink: it writes batch into the downstream
// buffer one record at a time, each with an effectively unbounded
// timeout, so a full downstream buffer stalls the upstream pipeline
// rather than dropping records.
func (c *Connector) Output(ctx context.Context, batch prepper.Batch) error {
	c.mu.RLock()
	buf := c.buf
	shutdown := c.shutdown
	c.mu.RUnlock()

	if shutdown {
		return fmt.Errorf("%w: connector %s->%s is shut down", prepper.ErrClosed, c.sinkPipelineName, c.sourcePipelineName)
	}
	if buf == nil {
		return fmt.Errorf("%w: connector %s->%s has no bound buffer (source-pipeline not started)", prepper.ErrInvalidConfiguration, c.sinkPipelineName, c.sourcePipelineName)
	}

	for _, record := range batch {
		if err := buf.Write(ctx, record, writeTimeout); err != nil {
			return fmt.Errorf("connector %s->%s: write: %w", c.sinkPipelineName, c.sourcePipelineName, err)
		}
	}
	return nil
}

// Shutdown implements prepper.Sink. Connectors are torn down via Stop
// (called as the source-pipeline's Source.Stop during its own shutdown
// sequence); the sink face has nothing additional to release.
func (c *Connector) Shutdown() error {
	return nil
}

// SinkPipelineName returns the name of the pipeline that writes into
// this connector.
func (c *Connector) SinkPipelineName() string { return c.sinkPipelineName }

// SourcePipelineName returns the name of the pipeline whose buffer this
// connector writes into.
func (c *Connector) SourcePipelineName() string { return c.sourcePipelineName }
