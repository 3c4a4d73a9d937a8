package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/dataprepper-go/pipeline/internal/buffer"
	"github.com/dataprepper-go/pipeline/internal/manager"
	"github.com/dataprepper-go/pipeline/internal/pipeline"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleSource struct{}

func (idleSource) Start(ctx context.Context, buf prepper.Buffer) error { return nil }
func (idleSource) Stop()                                               {}

type discardSink struct{}

func (discardSink) Output(ctx context.Context, batch prepper.Batch) error { return nil }
func (discardSink) Shutdown() error                                       { return nil }

func newRunningManager(t *testing.T) *manager.Manager {
	t.Helper()
	buf := buffer.New(buffer.Options{Capacity: 16, BatchSize: 8})
	p, err := pipeline.New("main", idleSource{}, buf, nil, []prepper.Sink{discardSink{}}, pipeline.Config{})
	require.NoError(t, err)

	mgr := manager.New([]*pipeline.Pipeline{p})
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })
	return mgr
}

func TestStatsRefresher_StartPopulatesCacheImmediately(t *testing.T) {
	mgr := newRunningManager(t)
	r := NewStatsRefresher(mgr, "@every 1h")
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return len(r.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	snap := r.Snapshot()
	assert.Equal(t, "main", snap[0].Name)
	assert.Equal(t, "STARTED", snap[0].State)
	assert.Equal(t, 16, snap[0].Capacity)
}

func TestStatsRefresher_DoubleStartErrors(t *testing.T) {
	mgr := newRunningManager(t)
	r := NewStatsRefresher(mgr, "@every 1h")
	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Error(t, r.Start())
}

func TestStatsRefresher_StopWithoutStartErrors(t *testing.T) {
	mgr := newRunningManager(t)
	r := NewStatsRefresher(mgr, "@every 1h")
	assert.Error(t, r.Stop())
}

func TestStatsRefresher_DefaultIntervalUsedWhenEmpty(t *testing.T) {
	mgr := newRunningManager(t)
	r := NewStatsRefresher(mgr, "")
	assert.Equal(t, DefaultInterval, r.interval)
}
