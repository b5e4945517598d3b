package sinks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// ErrCircuitOpen is returned for batches refused while a circuit is open.
var ErrCircuitOpen = errors.New("sinks: circuit open")

// CircuitState represents the state of a circuit breaker.
type CircuitState int32

const (
	// CircuitClosed lets every batch through.
	CircuitClosed CircuitState = iota
	// CircuitOpen refuses batches until the reset timeout has passed.
	CircuitOpen
	// CircuitHalfOpen lets trial batches through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerOptions configures a circuit breaker sink.
type CircuitBreakerOptions struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	ResetTimeout     time.Duration // time open before a trial batch

	// Fallback receives batches while the circuit is open. Without one
	// those batches fail with ErrCircuitOpen, which a BatchedSink in front
	// treats as a failed delivery and retries later.
	Fallback core.Sink

	OnStateChange func(from, to CircuitState)
}

// CircuitBreakerStats is a snapshot of a breaker.
type CircuitBreakerStats struct {
	State        CircuitState
	Failures     int
	Successes    int
	LastFailTime time.Time
}

// CircuitBreakerSink stops calling a failing sink for a while so callers
// are not held up by it.
type CircuitBreakerSink struct {
	wrapped core.Sink
	opts    CircuitBreakerOptions
	now     func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	lastFail  time.Time
}

// NewCircuitBreakerSink wraps a sink. Zero options take defaults: five
// failures, two successes and a 30 second reset timeout.
func NewCircuitBreakerSink(wrapped core.Sink, opts CircuitBreakerOptions) (*CircuitBreakerSink, error) {
	if wrapped == nil {
		return nil, fmt.Errorf("%w: circuit breaker needs a sink", core.ErrInvalidArgument)
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.SuccessThreshold <= 0 {
		opts.SuccessThreshold = 2
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = 30 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "circuit-breaker"
	}
	return &CircuitBreakerSink{wrapped: wrapped, opts: opts, now: time.Now}, nil
}

// Emit delivers the batch unless the circuit is open.
func (cb *CircuitBreakerSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	if !cb.allow() {
		if cb.opts.Fallback != nil {
			return cb.opts.Fallback.Emit(ctx, events)
		}
		selflog.Printf("[circuit:%s] refusing %d events, circuit open", cb.opts.Name, len(events))
		return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.opts.Name)
	}

	err := cb.safeEmit(ctx, events)
	cb.record(err)
	return err
}

func (cb *CircuitBreakerSink) safeEmit(ctx context.Context, events []*core.LogEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: sink panicked: %v", cb.opts.Name, r)
		}
	}()
	return cb.wrapped.Emit(ctx, events)
}

// allow reports whether a batch may reach the wrapped sink, moving an open
// circuit to half-open once the reset timeout has passed.
func (cb *CircuitBreakerSink) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}
	if cb.now().Sub(cb.lastFail) < cb.opts.ResetTimeout {
		return false
	}
	cb.transition(CircuitHalfOpen)
	return true
}

func (cb *CircuitBreakerSink) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.lastFail = cb.now()
		switch cb.state {
		case CircuitClosed:
			cb.failures++
			if cb.failures >= cb.opts.FailureThreshold {
				cb.transition(CircuitOpen)
			}
		case CircuitHalfOpen:
			cb.transition(CircuitOpen)
		}
		return
	}

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.opts.SuccessThreshold {
			cb.transition(CircuitClosed)
		}
	}
}

// transition changes state. Callers hold cb.mu.
func (cb *CircuitBreakerSink) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures = 0
	cb.successes = 0

	selflog.Printf("[circuit:%s] circuit %s (was %s)", cb.opts.Name, to, from)
	if cb.opts.OnStateChange != nil {
		cb.opts.OnStateChange(from, to)
	}
}

// Flush flushes the wrapped sink, or the fallback while the circuit is open.
func (cb *CircuitBreakerSink) Flush(ctx context.Context) error {
	if cb.State() == CircuitOpen {
		if cb.opts.Fallback != nil {
			return cb.opts.Fallback.Flush(ctx)
		}
		return nil
	}
	return cb.wrapped.Flush(ctx)
}

// Close closes the wrapped and fallback sinks.
func (cb *CircuitBreakerSink) Close(ctx context.Context) error {
	err := closeSink(ctx, cb.wrapped)
	if cb.opts.Fallback != nil {
		err = errors.Join(err, closeSink(ctx, cb.opts.Fallback))
	}
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreakerSink) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreakerSink) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:        cb.state,
		Failures:     cb.failures,
		Successes:    cb.successes,
		LastFailTime: cb.lastFail,
	}
}
