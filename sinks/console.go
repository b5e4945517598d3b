package sinks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
)

const (
	ansiReset   = "\x1b[0m"
	ansiGray    = "\x1b[90m"
	ansiCyan    = "\x1b[36m"
	ansiYellow  = "\x1b[33m"
	ansiRed     = "\x1b[31m"
	ansiBoldRed = "\x1b[1;31m"
)

// ConsoleSink writes one rendered line per event:
//
//	[15:04:05 INF] User alice logged in
type ConsoleSink struct {
	mu             sync.Mutex
	out            *bufio.Writer
	useColor       bool
	showProperties bool
}

// ConsoleOption configures a ConsoleSink.
type ConsoleOption func(*ConsoleSink)

// WithColor forces ANSI colors on or off.
func WithColor(enabled bool) ConsoleOption {
	return func(s *ConsoleSink) {
		s.useColor = enabled
	}
}

// WithProperties appends properties not used by the template to each line.
func WithProperties(enabled bool) ConsoleOption {
	return func(s *ConsoleSink) {
		s.showProperties = enabled
	}
}

// NewConsoleSink creates a sink writing to w, or to stdout when w is nil.
// Colors are enabled when w is a terminal and NO_COLOR is not set.
func NewConsoleSink(w io.Writer, opts ...ConsoleOption) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	s := &ConsoleSink{
		out:      bufio.NewWriter(w),
		useColor: shouldUseColor(w),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit writes the batch and flushes the line buffer.
func (s *ConsoleSink) Emit(_ context.Context, events []*core.LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		s.writeEvent(e)
	}
	return s.out.Flush()
}

// Flush flushes any buffered output.
func (s *ConsoleSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Flush()
}

func (s *ConsoleSink) writeEvent(e *core.LogEvent) {
	level := levelAbbreviation(e.Level)
	if s.useColor {
		level = levelColor(e.Level) + level + ansiReset
	}
	fmt.Fprintf(s.out, "[%s %s] %s", e.Timestamp.Format("15:04:05"), level, e.RenderMessage())

	if s.showProperties {
		if extra := unusedProperties(e); extra != "" {
			if s.useColor {
				extra = ansiGray + extra + ansiReset
			}
			s.out.WriteString(" " + extra)
		}
	}
	s.out.WriteByte('\n')

	if e.Error != nil {
		s.out.WriteString(e.Error.Error())
		s.out.WriteByte('\n')
	}
}

// unusedProperties lists properties the template did not render, sorted by
// name.
func unusedProperties(e *core.LogEvent) string {
	used := make(map[string]bool)
	if tmpl, ok := e.MessageTemplate.(*parser.MessageTemplate); ok {
		for _, name := range tmpl.PropertyNames() {
			used[name] = true
		}
	}

	var names []string
	for name := range e.Properties {
		if !used[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + parser.ToText(e.Properties[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func levelAbbreviation(level core.LogEventLevel) string {
	switch level {
	case core.VerboseLevel:
		return "VRB"
	case core.DebugLevel:
		return "DBG"
	case core.InformationLevel:
		return "INF"
	case core.WarningLevel:
		return "WRN"
	case core.ErrorLevel:
		return "ERR"
	case core.FatalLevel:
		return "FTL"
	default:
		return "???"
	}
}

func levelColor(level core.LogEventLevel) string {
	switch level {
	case core.VerboseLevel, core.DebugLevel:
		return ansiGray
	case core.InformationLevel:
		return ansiCyan
	case core.WarningLevel:
		return ansiYellow
	case core.ErrorLevel:
		return ansiRed
	default:
		return ansiBoldRed
	}
}

func shouldUseColor(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
