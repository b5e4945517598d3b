package durable

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
)

// storedEvent is the persisted shape of a LogEvent.
type storedEvent struct {
	Timestamp       time.Time          `json:"timestamp"`
	Level           core.LogEventLevel `json:"level"`
	MessageTemplate storedTemplate     `json:"messageTemplate"`
	Properties      map[string]any     `json:"properties,omitempty"`
	Error           string             `json:"error,omitempty"`
}

type storedTemplate struct {
	Raw string `json:"raw"`
}

// EncodeEvents serializes a batch as a JSON array. Property values that
// cannot be represented in JSON are stored as their text form.
func EncodeEvents(events []*core.LogEvent) ([]byte, error) {
	stored := make([]storedEvent, len(events))
	for i, e := range events {
		s := storedEvent{
			Timestamp:       e.Timestamp,
			Level:           e.Level,
			MessageTemplate: storedTemplate{Raw: e.TemplateText()},
			Properties:      e.Properties,
		}
		if e.Error != nil {
			s.Error = e.Error.Error()
		}
		if _, err := json.Marshal(s.Properties); err != nil {
			s.Properties = textProperties(e.Properties)
		}
		stored[i] = s
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return data, nil
}

// DecodeEvents restores a batch written by EncodeEvents. Templates are
// parsed again from their raw text.
func DecodeEvents(data []byte) ([]*core.LogEvent, error) {
	var stored []storedEvent
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	events := make([]*core.LogEvent, 0, len(stored))
	for i, s := range stored {
		tmpl, err := parser.ParseCached(s.MessageTemplate.Raw)
		if err != nil {
			return nil, fmt.Errorf("decode batch: event %d: %w", i, err)
		}
		e := &core.LogEvent{
			Timestamp:       s.Timestamp,
			Level:           s.Level,
			MessageTemplate: tmpl,
			Properties:      s.Properties,
		}
		if e.Properties == nil {
			e.Properties = make(map[string]any)
		}
		if s.Error != "" {
			e.Error = errors.New(s.Error)
		}
		events = append(events, e)
	}
	return events, nil
}

func textProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if _, err := json.Marshal(v); err != nil {
			out[k] = parser.ToText(v)
			continue
		}
		out[k] = v
	}
	return out
}
