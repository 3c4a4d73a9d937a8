package pipelineconfig

import (
	"context"
	"testing"

	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSource struct{}

func (noopSource) Start(ctx context.Context, buf prepper.Buffer) error { return nil }
func (noopSource) Stop()                                               {}

type noopSink struct{}

func (noopSink) Output(ctx context.Context, batch prepper.Batch) error { return nil }
func (noopSink) Shutdown() error                                       { return nil }

func testRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	r := plugin.New()
	require.NoError(t, r.RegisterSource("test-source", func(*prepper.PluginSetting) (prepper.Source, error) {
		return noopSource{}, nil
	}))
	require.NoError(t, r.RegisterSink("test-sink", func(*prepper.PluginSetting) (prepper.Sink, error) {
		return noopSink{}, nil
	}))
	return r
}

func intPtr(v int) *int { return &v }

func TestBuilder_SinglePipeline(t *testing.T) {
	file := File{
		"main": PipelineBlock{
			Source: PluginBlock{Name: "test-source"},
			Sink:   []PluginBlock{{Name: "test-sink"}},
		},
	}

	pipelines, err := NewBuilder(testRegistry(t)).Build(file)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "main", pipelines[0].Name())
}

func TestBuilder_TwoPipelinesConnected(t *testing.T) {
	file := File{
		"pipeline-a": PipelineBlock{
			Source: PluginBlock{Name: "test-source"},
			Sink:   []PluginBlock{{Name: "pipeline-b"}},
		},
		"pipeline-b": PipelineBlock{
			Source: PluginBlock{Name: "pipeline-a"},
			Sink:   []PluginBlock{{Name: "test-sink"}},
		},
	}

	pipelines, err := NewBuilder(testRegistry(t)).Build(file)
	require.NoError(t, err)
	require.Len(t, pipelines, 2)
	// Roots (real external source) must be materialised/started before
	// their downstream connector-fed pipeline.
	assert.Equal(t, "pipeline-a", pipelines[0].Name())
	assert.Equal(t, "pipeline-b", pipelines[1].Name())
}

func TestBuilder_CycleDetected(t *testing.T) {
	file := File{
		"pipeline-x": PipelineBlock{
			Source: PluginBlock{Name: "pipeline-y"},
			Sink:   []PluginBlock{{Name: "pipeline-y"}},
		},
		"pipeline-y": PipelineBlock{
			Source: PluginBlock{Name: "pipeline-x"},
			Sink:   []PluginBlock{{Name: "pipeline-x"}},
		},
	}

	_, err := NewBuilder(testRegistry(t)).Build(file)
	assert.ErrorIs(t, err, prepper.ErrInvalidConfiguration)
}

func TestBuilder_DanglingConnectorReference(t *testing.T) {
	// pipeline-a's source names pipeline-b, but pipeline-b has no sink
	// pointing at pipeline-a, so no connector exists for that edge.
	file := File{
		"pipeline-a": PipelineBlock{
			Source: PluginBlock{Name: "pipeline-b"},
			Sink:   []PluginBlock{{Name: "test-sink"}},
		},
		"pipeline-b": PipelineBlock{
			Source: PluginBlock{Name: "test-source"},
			Sink:   []PluginBlock{{Name: "test-sink"}},
		},
	}

	_, err := NewBuilder(testRegistry(t)).Build(file)
	assert.ErrorIs(t, err, prepper.ErrInvalidConfiguration)
}

func TestBuilder_ZeroSinks(t *testing.T) {
	file := File{
		"main": PipelineBlock{
			Source: PluginBlock{Name: "test-source"},
		},
	}

	_, err := NewBuilder(testRegistry(t)).Build(file)
	assert.ErrorIs(t, err, prepper.ErrInvalidConfiguration)
}

func TestBuilder_UnknownPlugin(t *testing.T) {
	file := File{
		"main": PipelineBlock{
			Source: PluginBlock{Name: "does-not-exist"},
			Sink:   []PluginBlock{{Name: "test-sink"}},
		},
	}

	_, err := NewBuilder(testRegistry(t)).Build(file)
	assert.ErrorIs(t, err, prepper.ErrNoPluginFound)
}

func TestBuilder_WorkersAndDelayOverrides(t *testing.T) {
	file := File{
		"main": PipelineBlock{
			Source:  PluginBlock{Name: "test-source"},
			Sink:    []PluginBlock{{Name: "test-sink"}},
			Workers: 4,
			Delay:   intPtr(0),
		},
	}

	pipelines, err := NewBuilder(testRegistry(t)).Build(file)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
}
