package plugin

import (
	"context"
	"testing"

	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct{}

func (m *mockSource) Start(ctx context.Context, buf prepper.Buffer) error { return nil }
func (m *mockSource) Stop()                                               {}

type mockProcessor struct{}

func (m *mockProcessor) Execute(ctx context.Context, batch prepper.Batch) (prepper.Batch, error) {
	return batch, nil
}

type mockSink struct{}

func (m *mockSink) Output(ctx context.Context, batch prepper.Batch) error { return nil }
func (m *mockSink) Shutdown() error                                      { return nil }

func setting(t *testing.T, name string) *prepper.PluginSetting {
	t.Helper()
	s, err := prepper.NewPluginSetting(name, "test-pipeline", nil)
	require.NoError(t, err)
	return s
}

func TestRegistry_RegisterSource_DuplicateErrors(t *testing.T) {
	r := New()
	factory := func(*prepper.PluginSetting) (prepper.Source, error) { return &mockSource{}, nil }

	require.NoError(t, r.RegisterSource("test-source", factory))
	assert.Error(t, r.RegisterSource("test-source", factory))
}

func TestRegistry_RegisterProcessor_DuplicateErrors(t *testing.T) {
	r := New()
	factory := func(*prepper.PluginSetting) (prepper.Processor, error) { return &mockProcessor{}, nil }

	require.NoError(t, r.RegisterProcessor("test-processor", factory))
	assert.Error(t, r.RegisterProcessor("test-processor", factory))
}

func TestRegistry_RegisterSink_DuplicateErrors(t *testing.T) {
	r := New()
	factory := func(*prepper.PluginSetting) (prepper.Sink, error) { return &mockSink{}, nil }

	require.NoError(t, r.RegisterSink("test-sink", factory))
	assert.Error(t, r.RegisterSink("test-sink", factory))
}

func TestRegistry_NewSource(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterSource("test-source", func(*prepper.PluginSetting) (prepper.Source, error) {
		return &mockSource{}, nil
	}))

	src, err := r.NewSource(setting(t, "test-source"))
	require.NoError(t, err)
	assert.NotNil(t, src)

	_, err = r.NewSource(setting(t, "missing"))
	assert.ErrorIs(t, err, prepper.ErrNoPluginFound)
}

func TestRegistry_NewProcessor_NotFound(t *testing.T) {
	r := New()
	_, err := r.NewProcessor(setting(t, "missing"))
	assert.ErrorIs(t, err, prepper.ErrNoPluginFound)
}

func TestRegistry_NewSink_NotFound(t *testing.T) {
	r := New()
	_, err := r.NewSink(setting(t, "missing"))
	assert.ErrorIs(t, err, prepper.ErrNoPluginFound)
}

func TestRegistry_RegisterSourceInstance_SharesInstance(t *testing.T) {
	r := New()
	instance := &mockSource{}
	require.NoError(t, r.RegisterSourceInstance("connector:a-to-b", instance))

	resolved, err := r.NewSource(setting(t, "connector:a-to-b"))
	require.NoError(t, err)
	assert.Same(t, instance, resolved)
	assert.True(t, r.HasSource("connector:a-to-b"))
}

func TestRegistry_ListSourcesProcessorsSinks(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterSource("s1", func(*prepper.PluginSetting) (prepper.Source, error) { return &mockSource{}, nil }))
	require.NoError(t, r.RegisterSource("s2", func(*prepper.PluginSetting) (prepper.Source, error) { return &mockSource{}, nil }))
	require.NoError(t, r.RegisterProcessor("p1", func(*prepper.PluginSetting) (prepper.Processor, error) { return &mockProcessor{}, nil }))
	require.NoError(t, r.RegisterSink("o1", func(*prepper.PluginSetting) (prepper.Sink, error) { return &mockSink{}, nil }))

	assert.ElementsMatch(t, []string{"s1", "s2"}, r.ListSources())
	assert.ElementsMatch(t, []string{"p1"}, r.ListProcessors())
	assert.ElementsMatch(t, []string{"o1"}, r.ListSinks())
}

func TestRegistry_GlobalRegistryIsSingleton(t *testing.T) {
	first := GetRegistry()
	second := GetRegistry()
	assert.Same(t, first, second)
}
