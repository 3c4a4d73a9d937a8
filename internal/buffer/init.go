package buffer

import "github.com/dataprepper-go/pipeline/internal/plugin"

func init() {
	if err := plugin.GetRegistry().RegisterBuffer(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}
