package sinks

import (
	"context"
	"fmt"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// ConditionalSink forwards the events matching a predicate to a target
// sink. Batches with no matching event are not forwarded.
type ConditionalSink struct {
	predicate func(*core.LogEvent) bool
	target    core.Sink
	name      string
}

// NewConditionalSink creates a sink that only forwards events matching the predicate.
func NewConditionalSink(predicate func(*core.LogEvent) bool, target core.Sink) (*ConditionalSink, error) {
	return NewNamedConditionalSink("", predicate, target)
}

// NewNamedConditionalSink creates a conditional sink whose name appears in
// selflog messages.
func NewNamedConditionalSink(name string, predicate func(*core.LogEvent) bool, target core.Sink) (*ConditionalSink, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: predicate is nil", core.ErrInvalidArgument)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: target sink is nil", core.ErrInvalidArgument)
	}
	if name == "" {
		name = "unnamed"
	}
	return &ConditionalSink{predicate: predicate, target: target, name: name}, nil
}

// Emit forwards the matching events, keeping their order.
func (s *ConditionalSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	matched := selectEvents(events, func(e *core.LogEvent) bool {
		return safeMatch("ConditionalSink:"+s.name, s.predicate, e)
	})
	if len(matched) == 0 {
		return nil
	}
	return s.target.Emit(ctx, matched)
}

// Flush flushes the target sink.
func (s *ConditionalSink) Flush(ctx context.Context) error {
	return s.target.Flush(ctx)
}

// Close closes the target sink if it supports closing.
func (s *ConditionalSink) Close(ctx context.Context) error {
	err := closeSink(ctx, s.target)
	if err != nil && selflog.IsEnabled() {
		selflog.Printf("[ConditionalSink:%s] failed to close target sink: %v", s.name, err)
	}
	return err
}

// selectEvents returns the events keep accepts. The input slice is returned
// as-is when every event is kept.
func selectEvents(events []*core.LogEvent, keep func(*core.LogEvent) bool) []*core.LogEvent {
	var out []*core.LogEvent
	for i, e := range events {
		if keep(e) {
			if out != nil {
				out = append(out, e)
			}
			continue
		}
		if out == nil {
			out = make([]*core.LogEvent, i, len(events))
			copy(out, events[:i])
		}
	}
	if out == nil {
		return events
	}
	return out
}

// safeMatch evaluates predicate, treating a panic as no match.
func safeMatch(component string, predicate func(*core.LogEvent) bool, e *core.LogEvent) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			if selflog.IsEnabled() {
				selflog.Printf("[%s] predicate panic: %v", component, r)
			}
			matched = false
		}
	}()
	return predicate(e)
}

// closeSink closes sink if it has a Close method.
func closeSink(ctx context.Context, sink core.Sink) error {
	switch s := sink.(type) {
	case interface{ Close(context.Context) error }:
		return s.Close(ctx)
	case interface{ Close() error }:
		return s.Close()
	}
	return nil
}

// LevelPredicate matches events enabled by minLevel.
func LevelPredicate(minLevel core.LogEventLevel) func(*core.LogEvent) bool {
	return func(event *core.LogEvent) bool {
		return core.IsEnabled(minLevel, event.Level)
	}
}

// PropertyPredicate matches events carrying the property.
func PropertyPredicate(propertyName string) func(*core.LogEvent) bool {
	return func(event *core.LogEvent) bool {
		_, exists := event.Properties[propertyName]
		return exists
	}
}
