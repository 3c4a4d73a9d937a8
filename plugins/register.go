// Package plugins blank-imports every reference plugin so their init()
// functions register with the process-wide registry. Import this package
// (for its side effects) from main.go before building any pipeline.
package plugins

import (
	_ "github.com/dataprepper-go/pipeline/plugins/processor/filter"
	_ "github.com/dataprepper-go/pipeline/plugins/processor/mapping"
	_ "github.com/dataprepper-go/pipeline/plugins/sink/csv"
	_ "github.com/dataprepper-go/pipeline/plugins/sink/inmemory"
	_ "github.com/dataprepper-go/pipeline/plugins/source/httppoll"
	_ "github.com/dataprepper-go/pipeline/plugins/source/inmemory"
)
