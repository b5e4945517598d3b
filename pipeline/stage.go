// Package pipeline routes batches of log events through an ordered chain
// of stages: filters, enrichers, sinks and dynamic level switches.
package pipeline

import (
	"context"

	"github.com/willibrandon/stlog/core"
)

// Stage is one link of a pipeline. A stage receives a batch, does its work
// and passes the resulting batch to the stage after it.
type Stage interface {
	// Emit processes a batch and forwards it down the chain.
	Emit(ctx context.Context, events []*core.LogEvent) error

	// Flush flushes the stage and everything after it.
	Flush(ctx context.Context) error

	// SetNext attaches the stage that follows this one.
	SetNext(next Stage)
}

// Link is the default behavior embedded by stages. Forwarding with no next
// stage, or with an empty batch, is a no-op.
type Link struct {
	next Stage
}

// SetNext attaches the following stage.
func (l *Link) SetNext(next Stage) {
	l.next = next
}

// Next returns the following stage, or nil at the end of the chain.
func (l *Link) Next() Stage {
	return l.next
}

// Forward emits events to the following stage.
func (l *Link) Forward(ctx context.Context, events []*core.LogEvent) error {
	if l.next == nil || len(events) == 0 {
		return nil
	}
	return l.next.Emit(ctx, events)
}

// Flush flushes the following stage.
func (l *Link) Flush(ctx context.Context) error {
	if l.next == nil {
		return nil
	}
	return l.next.Flush(ctx)
}

// FlushDelegator is implemented by stages that need to flush the pipeline
// they belong to. Pipeline.AddStage binds them to Pipeline.Flush.
type FlushDelegator interface {
	SetFlushDelegate(fn func(context.Context) error)
}
