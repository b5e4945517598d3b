package testutil

import (
	"context"
	"sync"

	"github.com/willibrandon/stlog/core"
)

// RecordingSink remembers every batch and flush it receives.
//
// EmitErr and FlushErr make the corresponding call fail. When FlushGate is
// set, Flush signals FlushEntered (if set) and then blocks until FlushGate
// is closed or the context ends.
type RecordingSink struct {
	mu      sync.Mutex
	batches [][]*core.LogEvent
	flushes int

	EmitErr      error
	FlushErr     error
	FlushEntered chan struct{}
	FlushGate    chan struct{}
}

// Emit records a copy of the batch.
func (s *RecordingSink) Emit(_ context.Context, events []*core.LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EmitErr != nil {
		return s.EmitErr
	}
	s.batches = append(s.batches, append([]*core.LogEvent(nil), events...))
	return nil
}

// Flush counts the call, honouring FlushGate.
func (s *RecordingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.flushes++
	gate, entered := s.FlushGate, s.FlushEntered
	s.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.FlushErr
}

// Batches returns the batches received so far.
func (s *RecordingSink) Batches() [][]*core.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*core.LogEvent(nil), s.batches...)
}

// Events returns every received event in arrival order.
func (s *RecordingSink) Events() []*core.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*core.LogEvent
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

// Flushes returns the number of Flush calls.
func (s *RecordingSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Reset forgets recorded batches and flushes.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = nil
	s.flushes = 0
}
