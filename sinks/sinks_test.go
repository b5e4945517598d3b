package sinks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/testutil"
)

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	events := testutil.Numbered(t, 1, 3)
	_ = sink.Emit(ctx, events)
	events[0].Properties["N"] = 99

	if sink.Count() != 3 {
		t.Fatalf("Count() = %d", sink.Count())
	}
	if sink.Events()[0].Properties["N"] != 1 {
		t.Error("stored event shares its property map with the caller")
	}
	if last := sink.LastEvent(); last == nil || last.Properties["N"] != 3 {
		t.Errorf("LastEvent() = %v", last)
	}
	found := sink.FindEvents(func(e *core.LogEvent) bool { return e.Properties["N"].(int) > 1 })
	if len(found) != 2 {
		t.Errorf("FindEvents() found %d", len(found))
	}

	_ = sink.Flush(ctx)
	if sink.Flushes() != 1 {
		t.Errorf("Flushes() = %d", sink.Flushes())
	}
	sink.Clear()
	if sink.Count() != 0 || sink.LastEvent() != nil {
		t.Error("Clear() left events behind")
	}
}

func TestConsoleSink(t *testing.T) {
	when := time.Date(2026, 3, 1, 9, 15, 30, 0, time.Local)

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewConsoleSink(&buf)

		e := testutil.Event(t, core.WarningLevel, "Disk {Disk} at {Percent}%", "sda", 91)
		e.Timestamp = when
		_ = sink.Emit(context.Background(), []*core.LogEvent{e})

		if got := buf.String(); got != "[09:15:30 WRN] Disk sda at 91%\n" {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("error and properties", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewConsoleSink(&buf, WithProperties(true))

		e := testutil.Event(t, core.ErrorLevel, "Request failed")
		e.Timestamp = when
		e.Properties["RequestId"] = "r-1"
		e.Properties["Attempt"] = 2
		e.Error = errors.New("connection reset")
		_ = sink.Emit(context.Background(), []*core.LogEvent{e})

		want := "[09:15:30 ERR] Request failed {Attempt=2, RequestId=r-1}\nconnection reset\n"
		if got := buf.String(); got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("color", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewConsoleSink(&buf, WithColor(true))

		_ = sink.Emit(context.Background(), []*core.LogEvent{testutil.Event(t, core.InformationLevel, "hi")})
		if !strings.Contains(buf.String(), ansiCyan+"INF"+ansiReset) {
			t.Errorf("expected colored level, got %q", buf.String())
		}
	})

	t.Run("no color for buffers", func(t *testing.T) {
		if shouldUseColor(&bytes.Buffer{}) {
			t.Error("a buffer is not a terminal")
		}
	})
}

func TestFormatCLEF(t *testing.T) {
	e := testutil.Event(t, core.ErrorLevel, "User {User} failed {@Details}", "ann", map[string]any{"code": 7})
	e.Timestamp = time.Date(2026, 2, 3, 4, 5, 6, 700_000_000, time.UTC)
	e.Error = errors.New("denied")
	e.Properties["@odd"] = "x"
	e.Properties["Ch"] = make(chan int)

	line, err := FormatCLEF(e)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(line, &got); err != nil {
		t.Fatal(err)
	}
	checks := map[string]any{
		"@t":    "2026-02-03T04:05:06.7000000Z",
		"@mt":   "User {User} failed {@Details}",
		"@m":    `User ann failed {"code":7}`,
		"@l":    "Error",
		"@x":    "denied",
		"User":  "ann",
		"@@odd": "x",
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
	if _, ok := got["Ch"].(string); !ok {
		t.Errorf("unencodable value should be text, got %T", got["Ch"])
	}
}

func TestFormatCLEF_InformationOmitsLevel(t *testing.T) {
	line, err := FormatCLEF(testutil.Event(t, core.InformationLevel, "hello"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(line), `"@l"`) {
		t.Errorf("information events carry no @l: %s", line)
	}
}

func TestFileSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs", "app.clef")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = sink.Emit(ctx, testutil.Numbered(t, 1, 3))
	if err := sink.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var messages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid line %q: %v", scanner.Text(), err)
		}
		messages = append(messages, rec["@m"].(string))
	}
	if strings.Join(messages, ",") != "Event 1,Event 2,Event 3" {
		t.Errorf("messages = %v", messages)
	}

	if err := sink.Emit(ctx, testutil.Numbered(t, 4, 1)); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Emit after Close = %v", err)
	}
}

func TestNewFileSink_EmptyPath(t *testing.T) {
	if _, err := NewFileSink(""); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
