package prepper

import (
	"context"
	"time"
)

// Capability names the four plugin kinds the registry resolves factories
// for. Buffer is a closed set in the core (the bounded blocking buffer is
// the reference implementation); Source, Processor and Sink are open.
type Capability string

const (
	CapabilitySource    Capability = "source"
	CapabilityBuffer    Capability = "buffer"
	CapabilityProcessor Capability = "processor"
	CapabilitySink      Capability = "sink"
)

// Buffer is the contract every buffer implementation satisfies (spec.md
// §4.1). Capacity accounting treats a record as in flight from the moment
// it is acquired by Write/WriteAll until the batch containing it is
// checkpointed; checkpoint releases capacity, not read.
type Buffer interface {
	// Write enqueues one record, failing with ErrTimeout if no slot opens
	// within timeout.
	Write(ctx context.Context, record Record, timeout time.Duration) error

	// WriteAll atomically enqueues records: either all become visible to
	// readers or none do. Fails with ErrSizeOverflow if len(records)
	// exceeds total capacity, or ErrTimeout if insufficient slots open
	// within timeout.
	WriteAll(ctx context.Context, records Batch, timeout time.Duration) error

	// Read returns a batch of up to the buffer's configured batch size
	// plus its checkpoint state. It may return a short (including empty)
	// batch if timeout elapses first; it must not block longer than
	// timeout plus a small slack.
	Read(ctx context.Context, timeout time.Duration) (Batch, CheckpointState, error)

	// Checkpoint acknowledges successful downstream processing of a
	// batch, releasing the capacity it held.
	Checkpoint(state CheckpointState) error

	// IsEmpty is true only when the queue is empty AND there is no
	// outstanding un-checkpointed in-flight record.
	IsEmpty() bool
}

// Source produces records into a buffer (spec.md §4.3).
type Source interface {
	// Start begins producing; records are written with buffer.Write or
	// buffer.WriteAll. Start must return promptly — production happens on
	// a goroutine the source itself manages.
	Start(ctx context.Context, buf Buffer) error

	// Stop requests cessation. Idempotent and safe to call concurrently
	// with Start or with itself. The source may keep producing for a
	// bounded grace window after Stop returns.
	Stop()
}

// Processor is a pure batch transformation stage (spec.md §4.3). It must
// not block on external I/O indefinitely; it should enforce its own
// deadlines. A panic or error from Execute is caught by the worker,
// logged, and the batch is checkpointed and dropped.
type Processor interface {
	Execute(ctx context.Context, batch Batch) (Batch, error)
}

// Sink delivers a batch externally (spec.md §4.3). It may block on
// retries; on repeated failure the sink owns its own retry discipline —
// the runtime treats any return (success or error) as "batch handled" and
// proceeds to checkpoint.
type Sink interface {
	Output(ctx context.Context, batch Batch) error

	// Shutdown releases any resources the sink holds (connections, open
	// files). Called once, during pipeline shutdown.
	Shutdown() error
}
