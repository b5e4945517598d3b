package pipeline

import (
	"context"
	"fmt"

	"github.com/willibrandon/stlog/core"
)

// FilterStage forwards only the events accepted by its filter. At the end of
// a chain it discards everything.
type FilterStage struct {
	Link
	filter core.LogEventFilter
}

// NewFilterStage creates a stage that keeps events accepted by filter.
func NewFilterStage(filter core.LogEventFilter) (*FilterStage, error) {
	if filter == nil {
		return nil, fmt.Errorf("%w: filter is nil", core.ErrInvalidArgument)
	}
	return &FilterStage{filter: filter}, nil
}

// NewPredicateStage is NewFilterStage for a plain predicate.
func NewPredicateStage(predicate func(*core.LogEvent) bool) (*FilterStage, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: filter predicate is nil", core.ErrInvalidArgument)
	}
	return &FilterStage{filter: core.FilterFunc(predicate)}, nil
}

// MinLevelStage keeps events whose level is enabled by level.
func MinLevelStage(level core.LogEventLevel) *FilterStage {
	return &FilterStage{filter: core.FilterFunc(func(e *core.LogEvent) bool {
		return core.IsEnabled(level, e.Level)
	})}
}

// Emit forwards the accepted events.
func (s *FilterStage) Emit(ctx context.Context, events []*core.LogEvent) error {
	if s.Next() == nil {
		return nil
	}

	kept := make([]*core.LogEvent, 0, len(events))
	for _, e := range events {
		if s.filter.IsEnabled(e) {
			kept = append(kept, e)
		}
	}
	return s.Forward(ctx, kept)
}
