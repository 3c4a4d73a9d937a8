package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dataprepper-go/pipeline/internal/buffer"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSource emits a fixed number of integer records as fast as the
// buffer accepts them, then idles until Stop is called.
type testSource struct {
	count   int
	stopped chan struct{}
	once    sync.Once
}

func newTestSource(count int) *testSource {
	return &testSource{count: count, stopped: make(chan struct{})}
}

func (s *testSource) Start(ctx context.Context, buf prepper.Buffer) error {
	go func() {
		for i := 0; i < s.count; i++ {
			_ = buf.Write(ctx, prepper.NewRecord(i), time.Second)
		}
	}()
	return nil
}

func (s *testSource) Stop() {
	s.once.Do(func() { close(s.stopped) })
}

type listSink struct {
	mu      sync.Mutex
	batches []prepper.Batch
}

func (s *listSink) Output(ctx context.Context, batch prepper.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *listSink) Shutdown() error { return nil }

func (s *listSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

// everyNthDroppingProcessor drops every nth record it sees and returns
// the rest without an error.
type everyNthDroppingProcessor struct {
	n    int
	seen int
	mu   sync.Mutex
}

func (p *everyNthDroppingProcessor) Execute(ctx context.Context, batch prepper.Batch) (prepper.Batch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(prepper.Batch, 0, len(batch))
	for _, r := range batch {
		p.seen++
		if p.seen%p.n == 0 {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type blockingSink struct{ block chan struct{} }

func (s *blockingSink) Output(ctx context.Context, batch prepper.Batch) error {
	<-s.block
	return nil
}
func (s *blockingSink) Shutdown() error { return nil }

func TestPipeline_EndToEnd_ListSinkReceivesAllRecords(t *testing.T) {
	src := newTestSource(1000)
	buf := buffer.New(buffer.Options{Capacity: 256, BatchSize: 64})
	sink := &listSink{}

	p, err := New("e2e", src, buf, nil, []prepper.Sink{sink}, Config{Workers: 4, ReadTimeout: 50 * time.Millisecond, Delay: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	require.Eventually(t, func() bool {
		return sink.count() == 1000
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 1000, sink.count())
}

func TestPipeline_BoundedCapacity_NoWritesFail(t *testing.T) {
	buf := buffer.New(buffer.Options{Capacity: 4, BatchSize: 2})
	src := newTestSource(10)
	sink := &listSink{}

	p, err := New("bounded", src, buf, nil, []prepper.Sink{sink}, Config{Workers: 1, ReadTimeout: 50 * time.Millisecond, Delay: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	require.Eventually(t, func() bool {
		return sink.count() == 10
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
}

func TestPipeline_ProcessorDropsEveryNth_OthersStillDelivered(t *testing.T) {
	src := newTestSource(70)
	buf := buffer.New(buffer.Options{Capacity: 128, BatchSize: 16})
	sink := &listSink{}
	proc := &everyNthDroppingProcessor{n: 7}

	p, err := New("drop-nth", src, buf, []prepper.Processor{proc}, []prepper.Sink{sink}, Config{Workers: 1, ReadTimeout: 50 * time.Millisecond, Delay: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	require.Eventually(t, func() bool {
		return sink.count() == 60
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.True(t, buf.IsEmpty())
}

func TestPipeline_BlockingSink_StopReturnsWithinDrainDeadline(t *testing.T) {
	src := newTestSource(5)
	buf := buffer.New(buffer.Options{Capacity: 16, BatchSize: 16})
	sink := &blockingSink{block: make(chan struct{})}
	defer close(sink.block)

	p, err := New("blocked", src, buf, nil, []prepper.Sink{sink}, Config{
		Workers:       1,
		ReadTimeout:   50 * time.Millisecond,
		Delay:         5 * time.Millisecond,
		DrainDeadline: 150 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	time.Sleep(30 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- p.Stop(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop did not return within drain deadline")
	}
	assert.Equal(t, StateStopped, p.State())
}

func TestNew_RejectsZeroSinks(t *testing.T) {
	_, err := New("no-sinks", newTestSource(0), buffer.New(buffer.Options{}), nil, nil, Config{})
	assert.ErrorIs(t, err, prepper.ErrInvalidConfiguration)
}

func TestNew_RejectsEmptyName(t *testing.T) {
	_, err := New("", newTestSource(0), buffer.New(buffer.Options{}), nil, []prepper.Sink{&listSink{}}, Config{})
	assert.ErrorIs(t, err, prepper.ErrInvalidConfiguration)
}

func TestPipeline_Stop_Idempotent(t *testing.T) {
	src := newTestSource(1)
	buf := buffer.New(buffer.Options{Capacity: 4, BatchSize: 4})
	sink := &listSink{}
	p, err := New("idempotent-stop", src, buf, nil, []prepper.Sink{sink}, Config{Workers: 1, ReadTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx))
}

var errProcessor = errors.New("boom")

type alwaysFailsProcessor struct{}

func (alwaysFailsProcessor) Execute(ctx context.Context, batch prepper.Batch) (prepper.Batch, error) {
	return nil, errProcessor
}

func TestPipeline_ProcessorError_DropsBatchAndCheckpoints(t *testing.T) {
	src := newTestSource(20)
	buf := buffer.New(buffer.Options{Capacity: 32, BatchSize: 8})
	sink := &listSink{}

	p, err := New("proc-error", src, buf, []prepper.Processor{alwaysFailsProcessor{}}, []prepper.Sink{sink}, Config{Workers: 1, ReadTimeout: 30 * time.Millisecond, Delay: 5 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))

	require.Eventually(t, func() bool {
		return buf.IsEmpty()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.Equal(t, 0, sink.count())
}
