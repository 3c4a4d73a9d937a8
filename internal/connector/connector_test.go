package connector

import (
	"context"
	"testing"
	"time"

	"github.com/dataprepper-go/pipeline/internal/buffer"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnector_OutputWritesIntoBoundBuffer(t *testing.T) {
	c := New("pipeline-a", "pipeline-b")
	buf := buffer.New(buffer.Options{Capacity: 10, BatchSize: 10})
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, buf))

	batch := prepper.Batch{prepper.NewRecord(1), prepper.NewRecord(2), prepper.NewRecord(3)}
	require.NoError(t, c.Output(ctx, batch))

	read, _, err := buf.Read(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, read, 3)
}

func TestConnector_OutputBeforeStart_InvalidConfiguration(t *testing.T) {
	c := New("pipeline-a", "pipeline-b")
	err := c.Output(context.Background(), prepper.Batch{prepper.NewRecord(1)})
	assert.ErrorIs(t, err, prepper.ErrInvalidConfiguration)
}

func TestConnector_StopRejectsFurtherOutput(t *testing.T) {
	c := New("pipeline-a", "pipeline-b")
	buf := buffer.New(buffer.Options{Capacity: 10, BatchSize: 10})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, buf))

	c.Stop()

	err := c.Output(ctx, prepper.Batch{prepper.NewRecord(1)})
	assert.ErrorIs(t, err, prepper.ErrClosed)
}

func TestConnector_Stop_Idempotent(t *testing.T) {
	c := New("pipeline-a", "pipeline-b")
	c.Stop()
	c.Stop()
}

func TestConnector_BackpressurePropagatesFromFullDownstreamBuffer(t *testing.T) {
	c := New("pipeline-a", "pipeline-b")
	buf := buffer.New(buffer.Options{Capacity: 1, BatchSize: 1})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, buf))

	require.NoError(t, c.Output(ctx, prepper.Batch{prepper.NewRecord("first")}))

	outputDone := make(chan error, 1)
	go func() {
		outputDone <- c.Output(ctx, prepper.Batch{prepper.NewRecord("second")})
	}()

	select {
	case <-outputDone:
		t.Fatal("Output returned before downstream buffer had capacity")
	case <-time.After(50 * time.Millisecond):
		// Still blocked, as expected.
	}

	_, state, err := buf.Read(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, buf.Checkpoint(state))

	select {
	case err := <-outputDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Output did not unblock after downstream buffer drained")
	}
}

func TestConnector_Names(t *testing.T) {
	c := New("a", "b")
	assert.Equal(t, "a", c.SinkPipelineName())
	assert.Equal(t, "b", c.SourcePipelineName())
}
