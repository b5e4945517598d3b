package sinks

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/testutil"
)

func TestConditionalSink(t *testing.T) {
	ctx := context.Background()

	t.Run("nil arguments", func(t *testing.T) {
		if _, err := NewConditionalSink(nil, NewMemorySink()); !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("nil predicate: expected ErrInvalidArgument, got %v", err)
		}
		if _, err := NewConditionalSink(func(*core.LogEvent) bool { return true }, nil); !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("nil target: expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("forwards matching events in order", func(t *testing.T) {
		target := &testutil.RecordingSink{}
		even := func(e *core.LogEvent) bool { return e.Properties["N"].(int)%2 == 0 }
		sink, err := NewConditionalSink(even, target)
		testutil.AssertNoError(t, err, "NewConditionalSink")

		testutil.AssertNoError(t, sink.Emit(ctx, testutil.Numbered(t, 1, 6)), "Emit")
		if got := testutil.Ints(target.Events(), "N"); !slices.Equal(got, []int{2, 4, 6}) {
			t.Errorf("expected [2 4 6], got %v", got)
		}
	})

	t.Run("skips batches without matches", func(t *testing.T) {
		target := &testutil.RecordingSink{}
		sink, _ := NewConditionalSink(func(*core.LogEvent) bool { return false }, target)

		testutil.AssertNoError(t, sink.Emit(ctx, testutil.Numbered(t, 1, 3)), "Emit")
		if n := len(target.Batches()); n != 0 {
			t.Errorf("expected no batches, got %d", n)
		}
	})

	t.Run("predicate panic is no match", func(t *testing.T) {
		target := &testutil.RecordingSink{}
		sink, _ := NewNamedConditionalSink("panicky", func(e *core.LogEvent) bool {
			if e.Properties["N"].(int) == 2 {
				panic("boom")
			}
			return true
		}, target)

		testutil.AssertNoError(t, sink.Emit(ctx, testutil.Numbered(t, 1, 3)), "Emit")
		if got := testutil.Ints(target.Events(), "N"); !slices.Equal(got, []int{1, 3}) {
			t.Errorf("expected [1 3], got %v", got)
		}
	})
}

func TestRouterSink_FirstMatch(t *testing.T) {
	ctx := context.Background()
	errorsSink := &testutil.RecordingSink{}
	auditSink := &testutil.RecordingSink{}
	fallback := &testutil.RecordingSink{}

	router, err := NewRouterSink(FirstMatch, fallback,
		AuditRoute("audit", auditSink),
		Route{Name: "errors", Priority: -1, Predicate: LevelPredicate(core.ErrorLevel), Sink: errorsSink},
	)
	testutil.AssertNoError(t, err, "NewRouterSink")

	events := []*core.LogEvent{
		testutil.Event(t, core.InformationLevel, "Plain {N}", 1),
		testutil.Event(t, core.ErrorLevel, "Failed {Audit}", true),
		testutil.Event(t, core.InformationLevel, "Login {Audit}", true),
		testutil.Event(t, core.FatalLevel, "Crash {N}", 4),
	}
	testutil.AssertNoError(t, router.Emit(ctx, events), "Emit")

	if got := testutil.Messages(errorsSink.Events()); !slices.Equal(got, []string{"Failed true", "Crash 4"}) {
		t.Errorf("errors route: got %v", got)
	}
	if got := testutil.Messages(auditSink.Events()); !slices.Equal(got, []string{"Login true"}) {
		t.Errorf("audit route: got %v", got)
	}
	if got := testutil.Messages(fallback.Events()); !slices.Equal(got, []string{"Plain 1"}) {
		t.Errorf("default route: got %v", got)
	}

	stats := router.Stats()
	testutil.AssertEqual(t, stats.TotalEvents, uint64(4), "total events")
	testutil.AssertEqual(t, stats.RouteHits["errors"], uint64(2), "errors hits")
	testutil.AssertEqual(t, stats.RouteHits["audit"], uint64(1), "audit hits")
	testutil.AssertEqual(t, stats.DefaultHits, uint64(1), "default hits")
}

func TestRouterSink_AllMatch(t *testing.T) {
	ctx := context.Background()
	errorsSink := &testutil.RecordingSink{}
	auditSink := &testutil.RecordingSink{}

	router, err := NewRouterSink(AllMatch, nil, ErrorRoute("errors", errorsSink), AuditRoute("audit", auditSink))
	testutil.AssertNoError(t, err, "NewRouterSink")

	events := []*core.LogEvent{
		testutil.Event(t, core.ErrorLevel, "Failed {Audit}", true),
		testutil.Event(t, core.DebugLevel, "Noise"),
	}
	testutil.AssertNoError(t, router.Emit(ctx, events), "Emit")

	testutil.AssertEqual(t, len(errorsSink.Events()), 1, "errors route events")
	testutil.AssertEqual(t, len(auditSink.Events()), 1, "audit route events")
	testutil.AssertEqual(t, router.Stats().DroppedEvents, uint64(1), "dropped events")

	if got := router.Match(events[0]); !slices.Equal(got, []string{"errors", "audit"}) {
		t.Errorf("Match: got %v", got)
	}
	if got := router.Match(events[1]); got != nil {
		t.Errorf("Match without default: got %v", got)
	}
}

func TestRouterSink_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewRouterSink(FirstMatch, nil, Route{Name: "broken"}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	failing := &testutil.RecordingSink{EmitErr: errors.New("offline")}
	healthy := &testutil.RecordingSink{}
	router, _ := NewRouterSink(AllMatch, nil, ErrorRoute("failing", failing), ErrorRoute("healthy", healthy))

	err := router.Emit(ctx, []*core.LogEvent{testutil.Event(t, core.ErrorLevel, "Failed")})
	if err == nil || !errors.Is(err, failing.EmitErr) {
		t.Fatalf("expected the failing route's error, got %v", err)
	}
	testutil.AssertEqual(t, len(healthy.Events()), 1, "healthy route still receives the event")

	if !router.RemoveRoute("failing") {
		t.Fatal("expected RemoveRoute to find the route")
	}
	testutil.AssertNoError(t, router.Emit(ctx, []*core.LogEvent{testutil.Event(t, core.ErrorLevel, "Failed")}), "Emit after removal")
	testutil.AssertNoError(t, router.Flush(ctx), "Flush")
	testutil.AssertEqual(t, healthy.Flushes(), 1, "healthy flushes")
}
