// Package httppoll implements a source that polls a URL on an interval
// and pushes each response body into the buffer as one record, adapted
// from the teacher's HTTPSource.
package httppoll

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/pkg/prepper"
)

// PluginName is the registry key this source registers under.
const PluginName = "httppoll"

func init() {
	if err := plugin.GetRegistry().RegisterSource(PluginName, NewFromSetting); err != nil {
		panic(err)
	}
}

const (
	defaultInterval     = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Source polls url every interval, writing the response body as one
// record's payload on each successful request.
type Source struct {
	url          string
	interval     time.Duration
	writeTimeout time.Duration
	client       *http.Client

	stopOnce sync.Once
	stopped  chan struct{}
	log      *logger.Logger
}

// New builds an httppoll Source.
func New(url string, interval time.Duration) *Source {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Source{
		url:          url,
		interval:     interval,
		writeTimeout: defaultWriteTimeout,
		client:       &http.Client{Timeout: interval},
		stopped:      make(chan struct{}),
		log:          logger.With("component", "httppoll"),
	}
}

// NewFromSetting builds an httppoll Source from a PluginSetting, reading
// "url" (required) and "interval_ms" (optional, default 5000).
func NewFromSetting(setting *prepper.PluginSetting) (prepper.Source, error) {
	url := setting.GetString("url", "")
	if url == "" {
		return nil, fmt.Errorf("%w: httppoll: url is required", prepper.ErrInvalidConfiguration)
	}
	intervalMs := setting.GetInt("interval_ms", int(defaultInterval/time.Millisecond))
	return New(url, time.Duration(intervalMs)*time.Millisecond), nil
}

// Start begins polling on its own goroutine and returns immediately.
func (s *Source) Start(ctx context.Context, buf prepper.Buffer) error {
	go s.run(ctx, buf)
	return nil
}

func (s *Source) run(ctx context.Context, buf prepper.Buffer) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		case <-ticker.C:
			s.poll(ctx, buf)
		}
	}
}

func (s *Source) poll(ctx context.Context, buf prepper.Buffer) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		s.log.Error("httppoll request build failed", "url", s.url, "error", err)
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("httppoll request failed", "url", s.url, "error", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Warn("httppoll body read failed", "url", s.url, "error", err)
		return
	}

	record := prepper.NewRecord(body)
	record.Metadata["url"] = s.url
	record.Metadata["status"] = resp.Status
	if err := buf.Write(ctx, record, s.writeTimeout); err != nil {
		s.log.Warn("httppoll write to buffer failed", "url", s.url, "error", err)
	}
}

// Stop requests cessation; idempotent and safe for concurrent callers.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}
