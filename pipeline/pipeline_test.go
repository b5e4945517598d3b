package pipeline

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
	"github.com/willibrandon/stlog/testutil"
)

// traceStage records its name for every batch and passes it on.
type traceStage struct {
	Link
	name  string
	mu    *sync.Mutex
	trace *[]string
}

func (s *traceStage) Emit(ctx context.Context, events []*core.LogEvent) error {
	s.mu.Lock()
	*s.trace = append(*s.trace, s.name)
	s.mu.Unlock()
	return s.Forward(ctx, events)
}

func sinkStage(t *testing.T, sink core.Sink) *SinkStage {
	t.Helper()
	stage, err := NewSinkStage(sink)
	testutil.AssertNoError(t, err, "NewSinkStage")
	return stage
}

func TestPipeline_AddStageRejectsNil(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
	}{
		{"nil interface", nil},
		{"nil filter stage", (*FilterStage)(nil)},
		{"nil sink stage", (*SinkStage)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			if err := p.AddStage(tt.stage); !errors.Is(err, core.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if p.Stages() != 0 {
				t.Errorf("expected no stages, got %d", p.Stages())
			}
		})
	}
}

func TestPipeline_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	p := New(WithYieldErrors(true))

	if err := p.Emit(ctx, testutil.Numbered(t, 0, 2)); err != nil {
		t.Errorf("Emit() on empty pipeline = %v", err)
	}
	if err := p.Flush(ctx); err != nil {
		t.Errorf("Flush() on empty pipeline = %v", err)
	}

	sink := &testutil.RecordingSink{}
	_ = p.AddStage(sinkStage(t, sink))
	if err := p.Emit(ctx, nil); err != nil {
		t.Errorf("Emit(nil) = %v", err)
	}
	if len(sink.Batches()) != 0 {
		t.Error("empty batch should not reach the sink")
	}
}

func TestPipeline_StagesRunInAdditionOrder(t *testing.T) {
	var mu sync.Mutex
	var trace []string
	p := New()
	for _, name := range []string{"first", "second", "third"} {
		if err := p.AddStage(&traceStage{name: name, mu: &mu, trace: &trace}); err != nil {
			t.Fatal(err)
		}
	}

	if err := p.Emit(context.Background(), testutil.Numbered(t, 0, 1)); err != nil {
		t.Fatal(err)
	}

	want := []string{"first", "second", "third"}
	if !slices.Equal(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
	if p.Stages() != 3 {
		t.Errorf("Stages() = %d", p.Stages())
	}
}

func TestPipeline_BatchOrderPreserved(t *testing.T) {
	sink := &testutil.RecordingSink{}
	p := New()
	_ = p.AddStage(MinLevelStage(core.VerboseLevel))
	_ = p.AddStage(sinkStage(t, sink))

	events := testutil.Numbered(t, 1, 5)
	if err := p.Emit(context.Background(), events); err != nil {
		t.Fatal(err)
	}

	got := testutil.Ints(sink.Events(), "N")
	if !slices.Equal(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("sink received %v", got)
	}
}

func TestPipeline_FlushQueuesEmits(t *testing.T) {
	ctx := context.Background()
	sink := &testutil.RecordingSink{
		FlushEntered: make(chan struct{}, 1),
		FlushGate:    make(chan struct{}),
	}
	p := New()
	_ = p.AddStage(sinkStage(t, sink))

	flushDone := make(chan error, 1)
	go func() { flushDone <- p.Flush(ctx) }()
	<-sink.FlushEntered

	// A second flush joins the one in flight rather than starting another.
	joinCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := p.Flush(joinCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("joined Flush() = %v, want deadline exceeded", err)
	}

	first, second := testutil.Numbered(t, 1, 2), testutil.Numbered(t, 3, 1)
	emitDone := make(chan error, 2)
	queued := func() int {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.queue)
	}
	go func() { emitDone <- p.Emit(ctx, first) }()
	testutil.Eventually(t, func() bool { return queued() == 1 }, time.Second, "first emit not queued")
	go func() { emitDone <- p.Emit(ctx, second) }()
	testutil.Eventually(t, func() bool { return queued() == 2 }, time.Second, "second emit not queued")

	if n := len(sink.Events()); n != 0 {
		t.Fatalf("events delivered during flush: %d", n)
	}
	select {
	case <-emitDone:
		t.Fatal("emit returned before the flush finished")
	default:
	}

	close(sink.FlushGate)
	if err := <-flushDone; err != nil {
		t.Errorf("Flush() = %v", err)
	}
	for range 2 {
		if err := <-emitDone; err != nil {
			t.Errorf("Emit() = %v", err)
		}
	}

	if got := testutil.Ints(sink.Events(), "N"); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("queued events delivered as %v", got)
	}
	if batches := sink.Batches(); len(batches) != 1 || len(batches[0]) != 3 {
		t.Errorf("queued emits should arrive as one batch of 3, got %d batches", len(batches))
	}
	if sink.Flushes() != 1 {
		t.Errorf("sink flushed %d times, want 1", sink.Flushes())
	}

	// The pipeline is back to direct delivery.
	sink.Reset()
	if err := p.Emit(ctx, testutil.Numbered(t, 9, 1)); err != nil {
		t.Fatal(err)
	}
	if got := testutil.Ints(sink.Events(), "N"); !slices.Equal(got, []int{9}) {
		t.Errorf("post-flush emit delivered %v", got)
	}
}

func TestPipeline_EmitWaitHonoursContext(t *testing.T) {
	sink := &testutil.RecordingSink{
		FlushEntered: make(chan struct{}, 1),
		FlushGate:    make(chan struct{}),
	}
	p := New()
	_ = p.AddStage(sinkStage(t, sink))

	go func() { _ = p.Flush(context.Background()) }()
	<-sink.FlushEntered
	defer close(sink.FlushGate)

	events := testutil.Numbered(t, 0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Emit(ctx, events); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPipeline_ErrorModes(t *testing.T) {
	boom := errors.New("sink down")

	t.Run("swallowed by default", func(t *testing.T) {
		var buf bytes.Buffer
		selflog.Enable(&buf)
		defer selflog.Disable()

		p := New()
		_ = p.AddStage(sinkStage(t, &testutil.RecordingSink{EmitErr: boom, FlushErr: boom}))

		if err := p.Emit(context.Background(), testutil.Numbered(t, 0, 1)); err != nil {
			t.Errorf("Emit() = %v, want nil", err)
		}
		if err := p.Flush(context.Background()); err != nil {
			t.Errorf("Flush() = %v, want nil", err)
		}
		out := buf.String()
		if !strings.Contains(out, "[pipeline] emit failed") || !strings.Contains(out, "[pipeline] flush failed") {
			t.Errorf("expected selflog diagnostics, got %q", out)
		}
	})

	t.Run("yielded", func(t *testing.T) {
		p := New(WithYieldErrors(true))
		_ = p.AddStage(sinkStage(t, &testutil.RecordingSink{EmitErr: boom, FlushErr: boom}))

		err := p.Emit(context.Background(), testutil.Numbered(t, 0, 1))
		if !errors.Is(err, boom) || !errors.Is(err, core.ErrDeliveryFailed) {
			t.Errorf("Emit() = %v, want delivery error wrapping %v", err, boom)
		}
		var de *core.DeliveryError
		if !errors.As(err, &de) || de.Op != "emit" {
			t.Errorf("expected emit DeliveryError, got %#v", err)
		}

		if err := p.Flush(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Flush() = %v, want %v", err, boom)
		}
	})
}
