// Package selflog reports problems inside stlog itself.
//
// The pipeline, sinks and durable stores never surface internal failures
// through the events they process. When errors are swallowed (the default),
// they are written here instead. Output is off until enabled:
//
//	selflog.Enable(os.Stderr)
//	defer selflog.Disable()
//
// Lines look like:
//
//	2026-01-29T15:30:45Z [batched] delivery failed: connection refused
//
// Setting STLOG_SELFLOG to "stderr", "stdout" or a file path enables it at
// startup.
package selflog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// EnvVar names the environment variable read at startup.
const EnvVar = "STLOG_SELFLOG"

// output is either a writer or a callback, never both.
type output struct {
	w  io.Writer
	fn func(string)
}

var current atomic.Pointer[output]

// Enable sends diagnostics to w. A nil writer is ignored.
// Writers shared between goroutines should be wrapped with Sync.
func Enable(w io.Writer) {
	if w == nil {
		return
	}
	current.Store(&output{w: w})
}

// EnableFunc sends each formatted line to fn. A nil func is ignored.
func EnableFunc(fn func(string)) {
	if fn == nil {
		return
	}
	current.Store(&output{fn: fn})
}

// Disable turns diagnostics off.
func Disable() {
	current.Store(nil)
}

// IsEnabled reports whether diagnostics are being written.
func IsEnabled() bool {
	return current.Load() != nil
}

// Printf writes one diagnostic line. By convention the format starts with
// the component in brackets, e.g. "[pipeline] flush failed: %v".
func Printf(format string, args ...any) {
	out := current.Load()
	if out == nil {
		return
	}

	line := time.Now().UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	if out.fn != nil {
		out.fn(line)
		return
	}
	fmt.Fprintln(out.w, line)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Sync serializes writes to w.
func Sync(w io.Writer) io.Writer {
	return &lockedWriter{w: w}
}

func init() {
	enableFromEnv(os.Getenv(EnvVar))
}

func enableFromEnv(dest string) {
	switch dest {
	case "":
	case "stderr":
		Enable(os.Stderr)
	case "stdout":
		Enable(os.Stdout)
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		Enable(Sync(f))
	}
}
