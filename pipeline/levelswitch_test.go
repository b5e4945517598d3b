package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/testutil"
)

func TestDynamicLevelSwitch_UnsetPassesEverything(t *testing.T) {
	sw := NewDynamicLevelSwitch()

	if _, ok := sw.Level(); ok {
		t.Fatal("new switch should have no level")
	}
	for _, level := range []core.LogEventLevel{core.VerboseLevel, core.DebugLevel, core.FatalLevel} {
		if !sw.IsEnabled(level) {
			t.Errorf("unset switch rejected %s", level)
		}
	}
}

func TestDynamicLevelSwitch_Setters(t *testing.T) {
	ctx := context.Background()
	sw := NewDynamicLevelSwitch()

	tests := []struct {
		name    string
		set     func(context.Context) error
		want    core.LogEventLevel
		enabled core.LogEventLevel
		blocked core.LogEventLevel
	}{
		{"Fatal", sw.Fatal, core.FatalLevel, core.FatalLevel, core.ErrorLevel},
		{"Error", sw.Error, core.ErrorLevel, core.FatalLevel, core.WarningLevel},
		{"Warning", sw.Warning, core.WarningLevel, core.ErrorLevel, core.InformationLevel},
		{"Information", sw.Information, core.InformationLevel, core.WarningLevel, core.DebugLevel},
		{"Debug", sw.Debug, core.DebugLevel, core.InformationLevel, core.VerboseLevel},
		{"Off", sw.Off, core.OffLevel, core.OffLevel, core.FatalLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(ctx); err != nil {
				t.Fatal(err)
			}
			if got, ok := sw.Level(); !ok || got != tt.want {
				t.Errorf("Level() = %s, %v", got, ok)
			}
			if !sw.IsEnabled(tt.enabled) {
				t.Errorf("%s should be enabled", tt.enabled)
			}
			if sw.IsEnabled(tt.blocked) {
				t.Errorf("%s should be blocked", tt.blocked)
			}
		})
	}

	if err := sw.Verbose(ctx); err != nil {
		t.Fatal(err)
	}
	if !sw.IsEnabled(core.VerboseLevel) {
		t.Error("Verbose should enable every level")
	}
}

func TestDynamicLevelSwitch_FlushesBeforeApplying(t *testing.T) {
	sw := NewDynamicLevelSwitch()
	_ = sw.Information(context.Background())

	var seen []core.LogEventLevel
	sw.SetFlushDelegate(func(context.Context) error {
		level, _ := sw.Level()
		seen = append(seen, level)
		return nil
	})

	_ = sw.Error(context.Background())
	_ = sw.Debug(context.Background())

	want := []core.LogEventLevel{core.InformationLevel, core.ErrorLevel}
	if !slices.Equal(seen, want) {
		t.Errorf("levels seen during flush = %v, want %v", seen, want)
	}
	if level, _ := sw.Level(); level != core.DebugLevel {
		t.Errorf("final level = %s", level)
	}
}

func TestDynamicLevelSwitch_FailedFlushKeepsLevel(t *testing.T) {
	sw := NewDynamicLevelSwitch()
	_ = sw.Warning(context.Background())

	boom := errors.New("flush failed")
	sw.SetFlushDelegate(func(context.Context) error { return boom })

	if err := sw.Verbose(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected flush error, got %v", err)
	}
	if level, _ := sw.Level(); level != core.WarningLevel {
		t.Errorf("level changed to %s despite failed flush", level)
	}

	sw.SetFlushDelegate(nil)
	if err := sw.Verbose(context.Background()); err != nil {
		t.Errorf("default delegate failed: %v", err)
	}
}

func TestDynamicLevelSwitch_ConcurrentSetters(t *testing.T) {
	sw := NewDynamicLevelSwitch()
	var mu sync.Mutex
	inFlush := 0
	sw.SetFlushDelegate(func(context.Context) error {
		mu.Lock()
		inFlush++
		n := inFlush
		mu.Unlock()
		if n > 1 {
			t.Error("level changes overlapped")
		}
		mu.Lock()
		inFlush--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = sw.Debug(context.Background())
			} else {
				_ = sw.Error(context.Background())
			}
		}(i)
	}
	wg.Wait()

	if level, ok := sw.Level(); !ok || (level != core.DebugLevel && level != core.ErrorLevel) {
		t.Errorf("unexpected final level %s", level)
	}
}

func TestDynamicLevelSwitchStage_InPipeline(t *testing.T) {
	ctx := context.Background()
	sw := NewDynamicLevelSwitch()
	stage, err := NewDynamicLevelSwitchStage(sw)
	testutil.AssertNoError(t, err, "NewDynamicLevelSwitchStage")
	if stage.Switch() != sw {
		t.Fatal("Switch() returned a different switch")
	}

	sink := &testutil.RecordingSink{}
	p := New()
	_ = p.AddStage(stage)
	_ = p.AddStage(sinkStage(t, sink))

	emitAll := func() {
		_ = p.Emit(ctx, []*core.LogEvent{
			testutil.Event(t, core.DebugLevel, "debug"),
			testutil.Event(t, core.InformationLevel, "info"),
			testutil.Event(t, core.ErrorLevel, "error"),
		})
	}

	emitAll()
	if got := testutil.Messages(sink.Events()); !slices.Equal(got, []string{"debug", "info", "error"}) {
		t.Errorf("unset switch passed %v", got)
	}

	// The switch was bound to the pipeline when the stage was added, so
	// changing the level flushes the sink first.
	if err := sw.Error(ctx); err != nil {
		t.Fatal(err)
	}
	if sink.Flushes() != 1 {
		t.Errorf("expected one pipeline flush, got %d", sink.Flushes())
	}

	sink.Reset()
	emitAll()
	if got := testutil.Messages(sink.Events()); !slices.Equal(got, []string{"error"}) {
		t.Errorf("Error switch passed %v", got)
	}
}
