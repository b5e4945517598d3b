package logr

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"

	"github.com/willibrandon/stlog"
	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/sinks"
)

func newTestLogger(t *testing.T, opts ...stlog.Option) (logr.Logger, *sinks.MemorySink) {
	t.Helper()
	memory := sinks.NewMemorySink()
	logger, err := NewLogger(append(opts, stlog.WithSink(memory))...)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger, memory
}

func TestLogrSink_Info(t *testing.T) {
	logger, memory := newTestLogger(t, stlog.WithMinimumLevel(core.VerboseLevel))

	logger.Info("reconciling", "namespace", "default", "replicas", 3)

	event := memory.LastEvent()
	if event == nil {
		t.Fatal("expected an event")
	}
	if event.Level != core.InformationLevel {
		t.Errorf("expected Information, got %v", event.Level)
	}
	if got := event.RenderMessage(); got != "reconciling" {
		t.Errorf("expected message %q, got %q", "reconciling", got)
	}
	if event.Properties["namespace"] != "default" || event.Properties["replicas"] != 3 {
		t.Errorf("unexpected properties %v", event.Properties)
	}
}

func TestLogrSink_VLevels(t *testing.T) {
	tests := []struct {
		v    int
		want core.LogEventLevel
	}{
		{0, core.InformationLevel},
		{1, core.DebugLevel},
		{2, core.VerboseLevel},
		{5, core.VerboseLevel},
	}

	for _, tt := range tests {
		logger, memory := newTestLogger(t, stlog.WithMinimumLevel(core.VerboseLevel))
		logger.V(tt.v).Info("tick")

		event := memory.LastEvent()
		if event == nil || event.Level != tt.want {
			t.Errorf("V(%d): expected %v, got %+v", tt.v, tt.want, event)
		}
	}
}

func TestLogrSink_Enabled(t *testing.T) {
	logger, memory := newTestLogger(t, stlog.WithMinimumLevel(core.InformationLevel))

	if logger.V(1).Enabled() {
		t.Error("V(1) should be disabled at Information")
	}
	logger.V(1).Info("hidden")
	logger.V(0).Info("shown")

	if memory.Count() != 1 {
		t.Errorf("expected 1 event, got %d", memory.Count())
	}
}

func TestLogrSink_Error(t *testing.T) {
	logger, memory := newTestLogger(t)
	cause := errors.New("conflict")

	logger.Error(cause, "update failed", "resource", "pod/web")

	event := memory.LastEvent()
	if event == nil {
		t.Fatal("expected an event")
	}
	if event.Level != core.ErrorLevel {
		t.Errorf("expected Error, got %v", event.Level)
	}
	if !errors.Is(event.Error, cause) {
		t.Errorf("expected the error to be attached, got %v", event.Error)
	}
	if event.Properties["resource"] != "pod/web" {
		t.Errorf("unexpected properties %v", event.Properties)
	}
}

func TestLogrSink_WithNameAndValues(t *testing.T) {
	logger, memory := newTestLogger(t)

	base := logger.WithName("controller").WithValues("request", "r-1")
	child := base.WithName("reconciler").WithValues("attempt")
	sibling := base.WithValues("attempt", 2)

	child.Info("starting")
	event := memory.LastEvent()
	if got := event.Properties[NameProperty]; got != "controller.reconciler" {
		t.Errorf("expected dotted name, got %v", got)
	}
	if event.Properties["request"] != "r-1" {
		t.Errorf("expected inherited values, got %v", event.Properties)
	}
	if v, ok := event.Properties["attempt"]; !ok || v != nil {
		t.Errorf("expected a trailing key with nil value, got %v (present=%v)", v, ok)
	}

	sibling.Info("retrying")
	event = memory.LastEvent()
	if event.Properties["attempt"] != 2 || event.Properties[NameProperty] != "controller" {
		t.Errorf("sibling values leaked: %v", event.Properties)
	}
}
