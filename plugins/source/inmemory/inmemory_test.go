package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/dataprepper-go/pipeline/internal/buffer"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_WritesAllRecordsThenStops(t *testing.T) {
	buf := buffer.New(buffer.Options{Capacity: 100, BatchSize: 100})
	src := New()
	records := make([]prepper.Record, 10)
	for i := range records {
		records[i] = prepper.NewRecord(i)
	}
	src.SetRecords(records)

	require.NoError(t, src.Start(context.Background(), buf))

	var total []prepper.Record
	deadline := time.After(time.Second)
	for len(total) < 10 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for records")
		default:
		}
		batch, state, err := buf.Read(context.Background(), 100*time.Millisecond)
		require.NoError(t, err)
		total = append(total, batch...)
		require.NoError(t, buf.Checkpoint(state))
	}
	assert.Len(t, total, 10)
}

func TestSource_StopIsIdempotent(t *testing.T) {
	src := New()
	assert.NotPanics(t, func() {
		src.Stop()
		src.Stop()
	})
}
