package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/metrics"
	"github.com/willibrandon/stlog/selflog"
)

// Pipeline owns an ordered chain of stages. Events enter at the first stage
// and each stage forwards to the one added after it.
//
// While a flush is running, emitted batches are held in a FIFO queue and
// delivered once every stage has flushed; their callers wait for the flush
// to complete. AddStage must not be called concurrently with Emit or Flush.
type Pipeline struct {
	mu       sync.Mutex
	stages   []Stage
	flushing *flushCall
	queue    [][]*core.LogEvent

	yieldErrors bool
	metrics     *metrics.Metrics
}

// flushCall is the completion handle shared by everyone waiting on a flush.
type flushCall struct {
	done chan struct{}
	err  error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithYieldErrors makes Emit and Flush return stage errors to the caller.
// By default they are reported to selflog and swallowed.
func WithYieldErrors(yield bool) Option {
	return func(p *Pipeline) {
		p.yieldErrors = yield
	}
}

// WithMetrics records pipeline activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStage appends stage to the chain. Stages that implement FlushDelegator
// are bound to this pipeline's Flush.
func (p *Pipeline) AddStage(stage Stage) error {
	if isNil(stage) {
		return fmt.Errorf("%w: pipeline stage is nil", core.ErrInvalidArgument)
	}

	p.mu.Lock()
	if n := len(p.stages); n > 0 {
		p.stages[n-1].SetNext(stage)
	}
	p.stages = append(p.stages, stage)
	p.mu.Unlock()

	if d, ok := stage.(FlushDelegator); ok {
		d.SetFlushDelegate(p.Flush)
	}
	return nil
}

// isNil also catches a nil pointer held in a non-nil interface.
func isNil(stage Stage) bool {
	if stage == nil {
		return true
	}
	v := reflect.ValueOf(stage)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Stages returns the number of stages in the chain.
func (p *Pipeline) Stages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stages)
}

// Emit sends events through the chain.
func (p *Pipeline) Emit(ctx context.Context, events []*core.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	if len(p.stages) == 0 {
		p.mu.Unlock()
		return nil
	}
	if call := p.flushing; call != nil {
		p.queue = append(p.queue, events)
		p.mu.Unlock()
		p.metrics.ObserveQueued(len(events))
		return wait(ctx, call)
	}
	head := p.stages[0]
	p.mu.Unlock()

	p.metrics.ObserveEmit(len(events))
	return p.handle("emit", head.Emit(ctx, events))
}

// Flush flushes every stage in chain order, then delivers the events that
// arrived in the meantime. A Flush called while another is running waits
// for that one instead of starting a second.
func (p *Pipeline) Flush(ctx context.Context) error {
	p.mu.Lock()
	if len(p.stages) == 0 {
		p.mu.Unlock()
		return nil
	}
	if call := p.flushing; call != nil {
		p.mu.Unlock()
		return wait(ctx, call)
	}
	call := &flushCall{done: make(chan struct{})}
	p.flushing = call
	head := p.stages[0]
	p.mu.Unlock()

	start := time.Now()
	err := p.handle("flush", head.Flush(ctx))

	// Batches queued while draining are concatenated in arrival order and
	// released as one. New arrivals keep queueing until the queue is seen
	// empty.
	for {
		p.mu.Lock()
		queued := p.queue
		p.queue = nil
		if len(queued) == 0 {
			p.flushing = nil
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		events := slices.Concat(queued...)
		p.metrics.ObserveEmit(len(events))
		if emitErr := p.handle("emit", head.Emit(ctx, events)); emitErr != nil && err == nil {
			err = emitErr
		}
	}

	p.metrics.ObserveFlush(time.Since(start))
	call.err = err
	close(call.done)
	return err
}

func (p *Pipeline) handle(op string, err error) error {
	if err == nil {
		return nil
	}
	p.metrics.ObserveStageError(op)
	if p.yieldErrors {
		return err
	}
	selflog.Printf("[pipeline] %s failed: %v", op, err)
	return nil
}

func wait(ctx context.Context, call *flushCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
