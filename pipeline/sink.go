package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/willibrandon/stlog/core"
)

// SinkStage delivers each batch to a sink and, at the same time, forwards it
// unchanged to the next stage. Emit returns once both have finished.
type SinkStage struct {
	Link
	sink core.Sink
}

// NewSinkStage creates a stage writing to sink.
func NewSinkStage(sink core.Sink) (*SinkStage, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: sink is nil", core.ErrInvalidArgument)
	}
	return &SinkStage{sink: sink}, nil
}

// Sink returns the sink this stage writes to.
func (s *SinkStage) Sink() core.Sink {
	return s.sink
}

// Emit delivers the batch to the sink and the next stage concurrently.
func (s *SinkStage) Emit(ctx context.Context, events []*core.LogEvent) error {
	if len(events) == 0 {
		return nil
	}
	if s.Next() == nil {
		return s.deliver(ctx, events)
	}

	var g errgroup.Group
	g.Go(func() error { return s.deliver(ctx, events) })
	g.Go(func() error { return s.Forward(ctx, events) })
	return g.Wait()
}

// Flush flushes the sink and the next stage concurrently.
func (s *SinkStage) Flush(ctx context.Context) error {
	if s.Next() == nil {
		return s.flushSink(ctx)
	}

	var g errgroup.Group
	g.Go(func() error { return s.flushSink(ctx) })
	g.Go(func() error { return s.Link.Flush(ctx) })
	return g.Wait()
}

func (s *SinkStage) deliver(ctx context.Context, events []*core.LogEvent) error {
	if err := s.sink.Emit(ctx, events); err != nil {
		return core.NewDeliveryError(s.sink, "emit", err)
	}
	return nil
}

func (s *SinkStage) flushSink(ctx context.Context) error {
	if err := s.sink.Flush(ctx); err != nil {
		return core.NewDeliveryError(s.sink, "flush", err)
	}
	return nil
}
