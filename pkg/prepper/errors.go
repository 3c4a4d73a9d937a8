package prepper

import "errors"

// Error taxonomy (spec.md §7). Steady-state errors (Timeout, SizeOverflow,
// PluginExecutionError) are local to the caller that observed them;
// startup errors (NoPluginFound, InvalidConfiguration) are fatal and abort
// process startup before any pipeline runs.
var (
	// ErrTimeout is returned when a bounded buffer write elapses before
	// enough capacity opens. Buffer.Read does not return it: a read whose
	// deadline elapses returns a short or empty batch with a nil error.
	ErrTimeout = errors.New("prepper: timeout")

	// ErrSizeOverflow is returned by Buffer.WriteAll when a batch exceeds
	// the buffer's total capacity; no partial write occurs.
	ErrSizeOverflow = errors.New("prepper: batch exceeds buffer capacity")

	// ErrNoPluginFound is returned by the plugin registry when no factory
	// is registered for the requested (name, capability) pair.
	ErrNoPluginFound = errors.New("prepper: no plugin found")

	// ErrInvalidConfiguration is returned by the pipeline parser/DAG
	// builder for a cycle, a dangling connector reference, or a pipeline
	// with zero sinks.
	ErrInvalidConfiguration = errors.New("prepper: invalid configuration")

	// ErrPluginExecutionError wraps a processor or sink panic/error that
	// the worker caught; the offending batch is checkpointed and dropped.
	ErrPluginExecutionError = errors.New("prepper: plugin execution error")

	// ErrClosed is returned by buffer and connector operations once the
	// owning pipeline has begun shutdown and is no longer accepting
	// writes.
	ErrClosed = errors.New("prepper: closed")
)
