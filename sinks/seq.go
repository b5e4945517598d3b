package sinks

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// SeqSink posts each batch to a Seq server's raw ingestion endpoint as
// newline-delimited CLEF. It does no buffering of its own; put a
// BatchedSink in front of it.
type SeqSink struct {
	serverURL string
	apiKey    string
	client    *http.Client

	useCompression bool
	retryCount     int
	retryDelay     time.Duration

	mu           sync.Mutex
	minimumLevel core.LogEventLevel
	levelKnown   bool
}

// SeqOption configures a Seq sink.
type SeqOption func(*SeqSink)

// WithSeqAPIKey sets the API key sent with every request.
func WithSeqAPIKey(apiKey string) SeqOption {
	return func(s *SeqSink) {
		s.apiKey = apiKey
	}
}

// WithSeqCompression gzips request bodies.
func WithSeqCompression(enabled bool) SeqOption {
	return func(s *SeqSink) {
		s.useCompression = enabled
	}
}

// WithSeqRetry sets how many times a failed post is retried and the base
// delay, which grows linearly with each attempt.
func WithSeqRetry(count int, delay time.Duration) SeqOption {
	return func(s *SeqSink) {
		s.retryCount = count
		s.retryDelay = delay
	}
}

// WithSeqHTTPClient sets a custom HTTP client.
func WithSeqHTTPClient(client *http.Client) SeqOption {
	return func(s *SeqSink) {
		s.client = client
	}
}

// NewSeqSink creates a sink for the Seq server at serverURL.
func NewSeqSink(serverURL string, opts ...SeqOption) (*SeqSink, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, fmt.Errorf("%w: seq server URL is empty", core.ErrInvalidArgument)
	}

	s := &SeqSink{
		serverURL:  serverURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryCount: 3,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil || s.retryCount < 0 {
		return nil, fmt.Errorf("%w: invalid seq sink options", core.ErrInvalidArgument)
	}
	return s, nil
}

// Emit posts the batch, retrying transport errors and 5xx responses.
// Client errors are returned without retrying.
func (s *SeqSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	var payload bytes.Buffer
	for _, e := range events {
		line, err := FormatCLEF(e)
		if err != nil {
			selflog.Printf("[seq] encode event %q: %v", e.TemplateText(), err)
			continue
		}
		payload.Write(line)
		payload.WriteByte('\n')
	}
	if payload.Len() == 0 {
		return nil
	}

	var err error
	for attempt := 0; attempt <= s.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			}
		}

		var retry bool
		if retry, err = s.post(ctx, payload.Bytes()); err == nil || !retry {
			return err
		}
	}
	return fmt.Errorf("failed to send to seq after %d attempts: %w", s.retryCount+1, err)
}

// post sends one payload and reports whether a failure is worth retrying.
func (s *SeqSink) post(ctx context.Context, payload []byte) (bool, error) {
	body := payload
	contentType := "application/vnd.serilog.clef"

	if s.useCompression {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			return false, err
		}
		if err := gz.Close(); err != nil {
			return false, err
		}
		body = buf.Bytes()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/api/events/raw", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", contentType)
	if s.useCompression {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if s.apiKey != "" {
		req.Header.Set("X-Seq-ApiKey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result struct {
		MinimumLevelAccepted *string `json:"MinimumLevelAccepted"`
		Error                string  `json:"Error"`
	}
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.recordMinimumLevel(result.MinimumLevelAccepted)
		return false, nil
	}

	retry := resp.StatusCode >= 500
	if result.Error != "" {
		return retry, fmt.Errorf("seq error (status %d): %s", resp.StatusCode, result.Error)
	}
	return retry, fmt.Errorf("seq returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

func (s *SeqSink) recordMinimumLevel(name *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == nil {
		s.levelKnown = false
		return
	}
	level, err := core.ParseLevel(*name)
	if err != nil {
		selflog.Printf("[seq] ignoring minimum level %q: %v", *name, err)
		return
	}
	s.minimumLevel, s.levelKnown = level, true
}

// MinimumLevelAccepted returns the level the server last asked for. The
// second result is false when the server has not set one.
func (s *SeqSink) MinimumLevelAccepted() (core.LogEventLevel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimumLevel, s.levelKnown
}

// Flush is a no-op; every Emit is delivered synchronously.
func (s *SeqSink) Flush(context.Context) error {
	return nil
}

// Close releases idle connections.
func (s *SeqSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Ping checks that the server answers on its API root.
func (s *SeqSink) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+"/api/", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("seq health check failed with status %d", resp.StatusCode)
	}
	return nil
}
