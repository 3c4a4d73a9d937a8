// Package csv implements a sink that appends records to a CSV file,
// adapted from the teacher's CSVOutputPlugin: tabular rows become
// map[string]interface{} payloads with one column per key (sorted for a
// stable header), and any other payload shape is written as a single
// "payload" column holding its JSON encoding.
package csv

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginName is the registry key this sink registers under.
const PluginName = "csv"

func init() {
	if err := plugin.GetRegistry().RegisterSink(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}

// Sink writes records to a CSV file, one row per record.
type Sink struct {
	mu            sync.Mutex
	file          *os.File
	writer        *csv.Writer
	delimiter     rune
	header        []string
	headerWritten bool
}

// Options configures a Sink.
type Options struct {
	Path      string
	Delimiter rune
	Append    bool
}

// New opens path and builds a Sink.
func New(opts Options) (*Sink, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	mode := os.O_CREATE | os.O_WRONLY
	headerWritten := false
	if opts.Append {
		mode |= os.O_APPEND
		headerWritten = true
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(opts.Path, mode, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv sink: open %q: %w", opts.Path, err)
	}

	w := csv.NewWriter(file)
	w.Comma = opts.Delimiter

	return &Sink{file: file, writer: w, delimiter: opts.Delimiter, headerWritten: headerWritten}, nil
}

// NewFromSetting builds a Sink from a PluginSetting, reading "path"
// (required), "delimiter" (single character, default ",") and "append"
// (bool, default false).
func NewFromSetting(setting *prepper.PluginSetting) (prepper.Sink, error) {
	path := setting.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("%w: csv sink: path is required", prepper.ErrInvalidConfiguration)
	}
	delim := setting.GetString("delimiter", ",")
	r := ','
	if len(delim) > 0 {
		r = rune(delim[0])
	}
	return New(Options{
		Path:      path,
		Delimiter: r,
		Append:    setting.GetBool("append", false),
	})
}

// Output writes every record in batch as one CSV row.
func (s *Sink) Output(ctx context.Context, batch prepper.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range batch {
		row, columns := s.toRow(record)
		if !s.headerWritten {
			if err := s.writer.Write(columns); err != nil {
				return fmt.Errorf("csv sink: write header: %w", err)
			}
			s.header = columns
			s.headerWritten = true
		}
		if err := s.writer.Write(row); err != nil {
			return fmt.Errorf("csv sink: write row: %w", err)
		}
	}

	s.writer.Flush()
	return s.writer.Error()
}

// toRow converts a record's payload into a CSV row and its column names.
// A map[string]interface{} payload becomes one column per key, sorted for
// a stable header across rows; anything else becomes a single "payload"
// column holding the JSON encoding of the payload.
func (s *Sink) toRow(record prepper.Record) (row, columns []string) {
	m, ok := record.Payload.(map[string]interface{})
	if !ok {
		encoded, err := json.Marshal(record.Payload)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", record.Payload))
		}
		return []string{string(encoded)}, []string{"payload"}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row = make([]string, len(keys))
	for i, k := range keys {
		row[i] = fmt.Sprintf("%v", m[k])
	}
	return row, keys
}

// Shutdown flushes and closes the underlying file.
func (s *Sink) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("csv sink: flush: %w", err)
	}
	return s.file.Close()
}
