package sinks

import (
	"context"
	"sync"

	"github.com/willibrandon/stlog/core"
)

// MemorySink stores log events in memory for testing purposes.
type MemorySink struct {
	mu      sync.RWMutex
	events  []*core.LogEvent
	flushes int
}

// NewMemorySink creates a new memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit stores copies of the events so later enrichment elsewhere cannot
// change what was recorded.
func (m *MemorySink) Emit(_ context.Context, events []*core.LogEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range events {
		m.events = append(m.events, e.Clone())
	}
	return nil
}

// Flush counts the call; there is nothing to deliver.
func (m *MemorySink) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// Events returns the stored events in arrival order.
func (m *MemorySink) Events() []*core.LogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*core.LogEvent(nil), m.events...)
}

// Count returns the number of stored events.
func (m *MemorySink) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Flushes returns how many times Flush was called.
func (m *MemorySink) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}

// Clear removes all stored events.
func (m *MemorySink) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// FindEvents returns events that match the given predicate.
func (m *MemorySink) FindEvents(predicate func(*core.LogEvent) bool) []*core.LogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*core.LogEvent
	for _, e := range m.events {
		if predicate(e) {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or nil if no events.
func (m *MemorySink) LastEvent() *core.LogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}
