package core

import "context"

// Sink outputs batches of log events to a destination.
//
// Implementations must be safe for concurrent use: a pipeline may deliver
// batches from several goroutines at once, and the same events may be seen
// by other sinks concurrently, so sinks must not modify them.
type Sink interface {
	// Emit delivers a batch of events. Events within the batch keep their order.
	Emit(ctx context.Context, events []*LogEvent) error

	// Flush returns once any buffered state has been delivered.
	Flush(ctx context.Context) error
}
