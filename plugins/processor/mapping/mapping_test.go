package mapping

import (
	"context"
	"testing"

	"github.com/dataprepper-go/pipeline/pkg/prepper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_RenamesMapPayloadKeys(t *testing.T) {
	proc, err := New(map[string]string{"old": "new"})
	require.NoError(t, err)

	batch := prepper.Batch{prepper.NewRecord(map[string]interface{}{"old": 1, "keep": 2})}
	out, err := proc.Execute(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, out, 1)
	m := out[0].Payload.(map[string]interface{})
	assert.Equal(t, 1, m["new"])
	assert.Equal(t, 2, m["keep"])
	assert.NotContains(t, m, "old")
}

func TestProcessor_NonMapPayloadPassesThrough(t *testing.T) {
	proc, err := New(map[string]string{"old": "new"})
	require.NoError(t, err)

	batch := prepper.Batch{prepper.NewRecord(42)}
	out, err := proc.Execute(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, 42, out[0].Payload)
}

func TestNew_RequiresMappings(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNewFromSetting_DecodesFieldMappings(t *testing.T) {
	setting, err := prepper.NewPluginSetting("mapping", "p", map[string]interface{}{
		"field_mappings": map[string]interface{}{"a": "b"},
	})
	require.NoError(t, err)

	proc, err := NewFromSetting(setting)
	require.NoError(t, err)

	out, err := proc.Execute(context.Background(), prepper.Batch{prepper.NewRecord(map[string]interface{}{"a": 1})})
	require.NoError(t, err)
	assert.Equal(t, 1, out[0].Payload.(map[string]interface{})["b"])
}

func TestNewFromSetting_MissingFieldMappingsErrors(t *testing.T) {
	setting, err := prepper.NewPluginSetting("mapping", "p", map[string]interface{}{})
	require.NoError(t, err)
	_, err = NewFromSetting(setting)
	assert.Error(t, err)
}
