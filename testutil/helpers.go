// Package testutil holds helpers shared by stlog's tests.
package testutil

import (
	"testing"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
)

// Eventually polls condition every 5ms until it holds or timeout elapses.
func Eventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			if message == "" {
				message = "condition not met within " + timeout.String()
			}
			t.Fatal(message)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// AssertNoError fails the test immediately if err is not nil.
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", message, err)
	}
}

// AssertEqual fails the test if actual != expected.
func AssertEqual[T comparable](t *testing.T, actual, expected T, message string) {
	t.Helper()
	if actual != expected {
		t.Fatalf("%s: expected %v, got %v", message, expected, actual)
	}
}

// Event builds an event the way a logger would: the template is parsed and
// args are bound positionally.
func Event(t testing.TB, level core.LogEventLevel, template string, args ...any) *core.LogEvent {
	t.Helper()

	tmpl, err := parser.Parse(template)
	if err != nil {
		t.Fatalf("parse %q: %v", template, err)
	}
	return core.NewLogEvent(level, tmpl, tmpl.BindProperties(args...), nil)
}

// Numbered builds n information events whose "N" property runs from first.
func Numbered(t testing.TB, first, n int) []*core.LogEvent {
	t.Helper()

	events := make([]*core.LogEvent, n)
	for i := range events {
		events[i] = Event(t, core.InformationLevel, "Event {N}", first+i)
	}
	return events
}

// Messages renders each event.
func Messages(events []*core.LogEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.RenderMessage()
	}
	return out
}

// Ints collects the integer property name from each event; events without
// it contribute -1.
func Ints(events []*core.LogEvent, name string) []int {
	out := make([]int, len(events))
	for i, e := range events {
		v, ok := e.Properties[name].(int)
		if !ok {
			v = -1
		}
		out[i] = v
	}
	return out
}
