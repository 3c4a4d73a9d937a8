package prepper

import "fmt"

// PluginSetting is a typed configuration node handed to a plugin factory:
// a plugin name, the name of the pipeline it belongs to, and a
// string-keyed map of options with typed accessors and per-key defaults.
// The pipeline name must be populated before a PluginSetting reaches a
// plugin factory (spec.md §3 invariant).
type PluginSetting struct {
	PluginName   string
	PipelineName string
	options      map[string]interface{}
}

// NewPluginSetting builds a PluginSetting for pluginName within
// pipelineName using the given options map. A nil map is treated as empty.
func NewPluginSetting(pluginName, pipelineName string, options map[string]interface{}) (*PluginSetting, error) {
	if pluginName == "" {
		return nil, fmt.Errorf("prepper: plugin name must not be empty")
	}
	if options == nil {
		options = map[string]interface{}{}
	}
	return &PluginSetting{PluginName: pluginName, PipelineName: pipelineName, options: options}, nil
}

// WithPipelineName returns a copy of the setting bound to pipelineName.
func (s *PluginSetting) WithPipelineName(pipelineName string) *PluginSetting {
	clone := *s
	clone.PipelineName = pipelineName
	return &clone
}

// GetString returns the string option named key, or def if absent or of
// the wrong type.
func (s *PluginSetting) GetString(key, def string) string {
	if v, ok := s.options[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// GetInt returns the integer option named key, or def if absent or of the
// wrong type. YAML decoders commonly hand back int, int64 or float64 for
// numeric scalars, so all three are accepted.
func (s *PluginSetting) GetInt(key string, def int) int {
	switch v := s.options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// GetBool returns the boolean option named key, or def if absent or of the
// wrong type.
func (s *PluginSetting) GetBool(key string, def bool) bool {
	if v, ok := s.options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetStringSlice returns the list option named key as a []string, or def
// if absent or of the wrong type.
func (s *PluginSetting) GetStringSlice(key string, def []string) []string {
	v, ok := s.options[key]
	if !ok {
		return def
	}
	raw, ok := v.([]interface{})
	if !ok {
		if strs, ok := v.([]string); ok {
			return strs
		}
		return def
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// GetSubSetting returns the nested options map named key as its own
// PluginSetting sharing this setting's plugin and pipeline name, or nil if
// absent or not a map.
func (s *PluginSetting) GetSubSetting(key string) *PluginSetting {
	v, ok := s.options[key]
	if !ok {
		return nil
	}
	sub, ok := toStringMap(v)
	if !ok {
		return nil
	}
	return &PluginSetting{PluginName: s.PluginName, PipelineName: s.PipelineName, options: sub}
}

// Raw returns the underlying options map, for plugins that need to decode
// a richer shape (e.g. via yaml re-marshal) than the typed accessors
// offer.
func (s *PluginSetting) Raw() map[string]interface{} {
	return s.options
}

func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	default:
		return nil, false
	}
}
