package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndSnapshot(t *testing.T) {
	r := NewRegistry()
	h := r.Register("main", 0)
	h.SetStatus(StatusProcessing)
	h.AddRecordsHandled(5)

	snap := r.SnapshotPipeline("main")
	a := assert.New(t)
	a.Len(snap, 1)
	a.Equal(StatusProcessing, snap[0].Status)
	a.Equal(uint64(5), snap[0].RecordsHandled)
}

func TestRegistry_UnregisterRemovesEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("main", 0)
	assert.Equal(t, 1, r.Count())

	r.Unregister("main", 0)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_SnapshotPipelineFiltersByName(t *testing.T) {
	r := NewRegistry()
	r.Register("a", 0)
	r.Register("b", 0)

	assert.Len(t, r.SnapshotPipeline("a"), 1)
	assert.Len(t, r.SnapshotPipeline("b"), 1)
	assert.Len(t, r.Snapshot(), 2)
}

func TestRegistry_MultipleWorkersSamePipeline(t *testing.T) {
	r := NewRegistry()
	r.Register("main", 0)
	r.Register("main", 1)

	assert.Len(t, r.SnapshotPipeline("main"), 2)
}
