// Package prepper defines the data model and plugin contracts shared by
// every pipeline component: records, checkpoints, plugin settings and the
// capability interfaces (Source, Buffer, Processor, Sink) that the plugin
// registry resolves by name.
package prepper

import "time"

// Record is an immutable envelope over a single unit of data flowing
// through a pipeline. Payload may be raw bytes, a structured event, or any
// other plugin-defined shape; Records carry no identity beyond their
// payload, and ordering is preserved only within a single worker's batch.
type Record struct {
	Payload  interface{}
	Metadata map[string]string
}

// NewRecord builds a Record with an empty metadata map.
func NewRecord(payload interface{}) Record {
	return Record{Payload: payload, Metadata: map[string]string{}}
}

// Batch is an ordered collection of Records moving through a pipeline as a
// unit: read together from a Buffer, transformed together by a processor
// chain, and fanned out together to every Sink.
type Batch []Record

// IsEmpty reports whether the batch has no records.
func (b Batch) IsEmpty() bool {
	return len(b) == 0
}

// CheckpointState is returned by Buffer.Read alongside a Batch and passed
// back to Buffer.Checkpoint once every sink has handled the batch. It
// carries enough information for the buffer to release the capacity it
// reserved for these records; Handles is left for buffer implementations
// that need an opaque per-record token (e.g. an offset) beyond the count.
type CheckpointState struct {
	RecordCount int
	Handles     []interface{}
	createdAt   time.Time
}

// NewCheckpointState builds a CheckpointState for a batch of the given size.
func NewCheckpointState(recordCount int) CheckpointState {
	return CheckpointState{RecordCount: recordCount, createdAt: time.Now()}
}

// Age reports how long ago this checkpoint state was created (i.e. how
// long the batch has been in flight, un-checkpointed).
func (c CheckpointState) Age() time.Duration {
	return time.Since(c.createdAt)
}
