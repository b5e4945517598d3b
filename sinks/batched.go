package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/durable"
	"github.com/willibrandon/stlog/metrics"
	"github.com/willibrandon/stlog/selflog"
)

const (
	// DefaultBatchSize is the number of events that triggers a cycle.
	DefaultBatchSize = 100

	// DefaultBatchPeriod is the time after which a partial batch is cycled.
	DefaultBatchPeriod = 10 * time.Second

	// DefaultDurableStoreKey namespaces persisted batches.
	DefaultDurableStoreKey = "stlog-batched-sink"
)

// ErrSinkClosed is returned when emitting to a closed sink.
var ErrSinkClosed = errors.New("sinks: sink is closed")

// BatchedOptions configures a BatchedSink.
type BatchedOptions struct {
	// MaxSize is the batch size that triggers delivery. Zero means
	// DefaultBatchSize.
	MaxSize int

	// Period is how long a partial batch waits before delivery. Zero means
	// DefaultBatchPeriod; a negative value disables time-based cycling.
	Period time.Duration

	// DurableStore, when set, holds the pending batch until it has been
	// delivered and is replayed when the sink is created.
	DurableStore durable.Store

	// DurableStoreKey is the key namespace within DurableStore. Zero means
	// DefaultDurableStoreKey.
	DurableStoreKey string

	// Metrics records batch activity.
	Metrics *metrics.Metrics
}

// BatchedSink collects events and hands them to an inner sink in batches of
// at most MaxSize, either when a batch fills up, when Period elapses, or on
// Flush.
//
// A batch whose delivery fails is put back at the front of the pending
// batch and sent again on the next cycle, so delivery is at least once.
// With a durable store the pending batch is written under
// "<namespace>-<epoch-ms>" after every change and removed once delivered.
type BatchedSink struct {
	inner core.Sink
	opts  BatchedOptions

	mu        sync.Mutex
	batch     []*core.LogEvent
	batchKey  string
	lastKeyMs int64
	timer     *time.Timer
	timerGen  uint64
	closed    bool
}

// NewBatchedSink wraps inner. When a durable store is configured, batches
// left over by a previous owner of the namespace are delivered before the
// sink is returned.
func NewBatchedSink(ctx context.Context, inner core.Sink, opts BatchedOptions) (*BatchedSink, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: inner sink is nil", core.ErrInvalidArgument)
	}
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("%w: batch size must not be negative, got %d", core.ErrInvalidArgument, opts.MaxSize)
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = DefaultBatchSize
	}
	if opts.Period == 0 {
		opts.Period = DefaultBatchPeriod
	}
	if opts.DurableStoreKey == "" {
		opts.DurableStoreKey = DefaultDurableStoreKey
	}

	b := &BatchedSink{inner: inner, opts: opts}

	var replayed []*core.LogEvent
	var replayedKeys []string
	if opts.DurableStore != nil {
		var err error
		if replayed, replayedKeys, err = b.restore(ctx); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	b.batchKey = b.nextKey()
	b.armTimer()
	b.mu.Unlock()

	if len(replayed) > 0 {
		b.opts.Metrics.ObserveReplay(len(replayed))
		selflog.Printf("[batched] replaying %d events from %s", len(replayed), opts.DurableStoreKey)
		// The recovered entries stay in the store until the events are
		// persisted under this sink's own key.
		if err := b.Emit(ctx, replayed); err != nil {
			b.abandon()
			return nil, err
		}
		for _, key := range replayedKeys {
			if err := opts.DurableStore.Remove(ctx, key); err != nil {
				b.abandon()
				return nil, fmt.Errorf("remove durable batch %s: %w", key, err)
			}
		}
		b.mu.Lock()
		err := b.cycle(ctx)
		b.mu.Unlock()
		if err != nil {
			b.abandon()
			return nil, err
		}
	}

	return b, nil
}

// restore loads every batch persisted under the namespace and returns the
// events with the keys they came from. Entries that cannot be decoded are
// left in place and are not among the returned keys.
func (b *BatchedSink) restore(ctx context.Context) ([]*core.LogEvent, []string, error) {
	store := b.opts.DurableStore
	prefix := b.opts.DurableStoreKey + "-"

	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("list durable batches: %w", err)
	}

	var events []*core.LogEvent
	var restored []string
	for _, key := range keys {
		if ms, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64); err == nil && ms > b.lastKeyMs {
			b.lastKeyMs = ms
		}

		data, err := store.Get(ctx, key)
		if errors.Is(err, durable.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read durable batch %s: %w", key, err)
		}
		batch, err := durable.DecodeEvents(data)
		if err != nil {
			selflog.Printf("[batched] skipping unreadable batch %s: %v", key, err)
			continue
		}
		events = append(events, batch...)
		restored = append(restored, key)
	}
	return events, restored, nil
}

// abandon stops a sink whose construction failed.
func (b *BatchedSink) abandon() {
	b.mu.Lock()
	b.closed = true
	b.stopTimer()
	b.mu.Unlock()
}

// Emit adds events to the pending batch, delivering full batches as they
// form. A submission larger than MaxSize spans several batches.
func (b *BatchedSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrSinkClosed
	}
	defer func() { b.opts.Metrics.SetPending(len(b.batch)) }()

	size := b.opts.MaxSize
	if len(b.batch)+len(events) <= size {
		b.batch = append(b.batch, events...)
		return b.persist(ctx)
	}

	cursor := max(size-len(b.batch), 0)
	b.batch = append(b.batch, events[:cursor]...)
	if err := b.persist(ctx); err != nil {
		return err
	}
	for cursor < len(events) {
		if err := b.cycle(ctx); err != nil {
			return err
		}
		end := min(cursor+size, len(events))
		b.batch = append(b.batch, events[cursor:end]...)
		cursor = end
		if err := b.persist(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Flush delivers the pending batch immediately and then flushes the inner
// sink.
func (b *BatchedSink) Flush(ctx context.Context) error {
	b.mu.Lock()
	err := b.cycle(ctx)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.inner.Flush(ctx)
}

// Close stops the timer, flushes, and closes the inner sink if it is an
// io.Closer. Events emitted after Close are rejected.
func (b *BatchedSink) Close(ctx context.Context) error {
	err := b.Flush(ctx)

	b.mu.Lock()
	b.closed = true
	b.stopTimer()
	b.mu.Unlock()

	if c, ok := b.inner.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// Pending returns the number of events waiting in the current batch.
func (b *BatchedSink) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batch)
}

// BatchKey returns the durable key of the current batch.
func (b *BatchedSink) BatchKey() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batchKey
}

// cycle delivers the pending batch and starts a new one. Delivery failures
// are reported to selflog and leave the batch pending; only durable store
// errors are returned. Callers hold b.mu.
func (b *BatchedSink) cycle(ctx context.Context) error {
	b.stopTimer()
	previousKey := b.batchKey

	if len(b.batch) > 0 {
		snapshot := b.batch
		b.batch = nil

		err := b.inner.Emit(ctx, snapshot)
		b.opts.Metrics.ObserveBatch(len(snapshot), err)
		if err != nil {
			selflog.Printf("[batched] delivery of %d events failed, will retry: %v", len(snapshot), err)
			b.batch = append(snapshot, b.batch...)
		}
	}

	b.batchKey = b.nextKey()
	b.armTimer()
	b.opts.Metrics.SetPending(len(b.batch))

	if b.opts.DurableStore == nil {
		return nil
	}
	// A restored batch moves to the new key before the old one goes away.
	if len(b.batch) > 0 {
		if err := b.persist(ctx); err != nil {
			return err
		}
	}
	if err := b.opts.DurableStore.Remove(ctx, previousKey); err != nil {
		return fmt.Errorf("remove delivered batch %s: %w", previousKey, err)
	}
	return nil
}

func (b *BatchedSink) persist(ctx context.Context) error {
	if b.opts.DurableStore == nil {
		return nil
	}
	data, err := durable.EncodeEvents(b.batch)
	if err != nil {
		return err
	}
	if err := b.opts.DurableStore.Set(ctx, b.batchKey, data); err != nil {
		return fmt.Errorf("persist batch %s: %w", b.batchKey, err)
	}
	return nil
}

// nextKey returns a key later than every key issued or replayed so far,
// even when several are issued within one millisecond.
func (b *BatchedSink) nextKey() string {
	ms := time.Now().UnixMilli()
	if ms <= b.lastKeyMs {
		ms = b.lastKeyMs + 1
	}
	b.lastKeyMs = ms
	return b.opts.DurableStoreKey + "-" + strconv.FormatInt(ms, 10)
}

func (b *BatchedSink) armTimer() {
	if b.opts.Period <= 0 || b.closed {
		return
	}
	b.timerGen++
	gen := b.timerGen
	b.timer = time.AfterFunc(b.opts.Period, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed || gen != b.timerGen {
			return
		}
		if err := b.cycle(context.Background()); err != nil {
			selflog.Printf("[batched] timed cycle failed: %v", err)
		}
	})
}

func (b *BatchedSink) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.timerGen++
}
