package sinks

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// DefaultIndexPrefix starts the daily index names used by OpenSearchSink.
const DefaultIndexPrefix = "logs"

// OpenSearchOptions configures an OpenSearchSink.
type OpenSearchOptions struct {
	Addresses []string

	// IndexPrefix is followed by "-YYYY.MM.DD" of each event's timestamp.
	IndexPrefix string

	// Insecure skips TLS verification.
	Insecure bool

	// Client overrides the client built from Addresses.
	Client *opensearch.Client
}

// OpenSearchSink indexes each batch with one Bulk request.
type OpenSearchSink struct {
	client      *opensearch.Client
	indexPrefix string
}

// NewOpenSearchSink creates a sink from opts.
func NewOpenSearchSink(opts OpenSearchOptions) (*OpenSearchSink, error) {
	client := opts.Client
	if client == nil {
		if len(opts.Addresses) == 0 {
			return nil, fmt.Errorf("%w: opensearch sink needs at least one address", core.ErrInvalidArgument)
		}
		cfg := opensearch.Config{Addresses: opts.Addresses}
		if opts.Insecure {
			cfg.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
		var err error
		if client, err = opensearch.NewClient(cfg); err != nil {
			return nil, fmt.Errorf("create opensearch client: %w", err)
		}
	}
	prefix := opts.IndexPrefix
	if prefix == "" {
		prefix = DefaultIndexPrefix
	}
	return &OpenSearchSink{client: client, indexPrefix: prefix}, nil
}

// Emit sends the batch as a Bulk request. Any rejected document fails the
// whole call, so a BatchedSink in front of it retries the batch.
func (s *OpenSearchSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, e := range events {
		doc, err := FormatCLEF(e)
		if err != nil {
			selflog.Printf("[opensearch] encode event %q: %v", e.TemplateText(), err)
			continue
		}
		index := s.IndexFor(e)
		fmt.Fprintf(&buf, `{"index":{"_index":%q}}`+"\n", index)
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	if buf.Len() == 0 {
		return nil
	}

	req := opensearchapi.BulkRequest{Body: bytes.NewReader(buf.Bytes())}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("execute bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch bulk error: %s", res.String())
	}
	return checkBulkResponse(res.Body)
}

// Flush is a no-op: requests are synchronous.
func (s *OpenSearchSink) Flush(context.Context) error {
	return nil
}

// IndexFor returns the daily index an event is written to.
func (s *OpenSearchSink) IndexFor(e *core.LogEvent) string {
	return s.indexPrefix + "-" + e.Timestamp.UTC().Format("2006.01.02")
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func checkBulkResponse(body io.Reader) error {
	var resp bulkResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !resp.Errors {
		return nil
	}

	failed := 0
	var first string
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Status >= 300 {
				failed++
				if first == "" {
					first = result.Error.Type + ": " + result.Error.Reason
				}
			}
		}
	}
	return fmt.Errorf("opensearch rejected %d of %d documents: %s", failed, len(resp.Items), first)
}
