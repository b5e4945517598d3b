// Package logr lets a stlog logger back logr, the logging interface used
// throughout the Kubernetes ecosystem.
//
//	logger, err := stlogr.NewLogger(
//		stlog.WithConsole(),
//		stlog.WithMinimumLevel(core.DebugLevel),
//	)
//	logger.Info("reconciling", "namespace", "default", "name", "my-app")
//	logger.Error(err, "failed to update resource")
//
// logr V-levels map to stlog levels as V(0) Information, V(1) Debug and
// V(2) or above Verbose.
package logr

import (
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/willibrandon/stlog"
	"github.com/willibrandon/stlog/core"
)

// NameProperty holds the dotted logr logger name.
const NameProperty = "LoggerName"

// NewLogger creates a logr.Logger backed by a new stlog logger.
func NewLogger(options ...stlog.Option) (logr.Logger, error) {
	logger, err := stlog.New(options...)
	if err != nil {
		return logr.Discard(), err
	}
	return logr.New(NewLogrSink(logger)), nil
}

// LogrSink implements logr.LogSink over a core.Logger. Key/value pairs
// become event properties; the message is used as the event's template.
type LogrSink struct {
	logger core.Logger
	name   string
	values []any
}

var _ logr.LogSink = (*LogrSink)(nil)

// NewLogrSink creates a logr.LogSink writing to logger.
func NewLogrSink(logger core.Logger) *LogrSink {
	return &LogrSink{logger: logger}
}

// Init is a no-op; stlog does not record call sites.
func (s *LogrSink) Init(logr.RuntimeInfo) {}

// Enabled reports whether the logger accepts events at the V-level.
func (s *LogrSink) Enabled(level int) bool {
	return s.logger.IsEnabled(levelFromV(level))
}

// Info logs msg at the level mapped from the V-level.
func (s *LogrSink) Info(level int, msg string, keysAndValues ...any) {
	s.with(keysAndValues).Write(levelFromV(level), msg)
}

// Error logs msg at ErrorLevel with err attached to the event.
func (s *LogrSink) Error(err error, msg string, keysAndValues ...any) {
	s.with(keysAndValues).WriteError(core.ErrorLevel, err, msg)
}

// WithValues returns a sink that adds the key/value pairs to every event.
func (s *LogrSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &LogrSink{
		logger: s.logger,
		name:   s.name,
		values: append(slices.Clip(s.values), keysAndValues...),
	}
}

// WithName returns a sink whose name has name appended, dot separated.
func (s *LogrSink) WithName(name string) logr.LogSink {
	if s.name != "" {
		name = s.name + "." + name
	}
	return &LogrSink{
		logger: s.logger.ForContext(NameProperty, name),
		name:   name,
		values: s.values,
	}
}

// with applies the stored values, then keysAndValues. A trailing key
// without a value is recorded with a nil value.
func (s *LogrSink) with(keysAndValues []any) core.Logger {
	logger := s.logger
	for _, kv := range [][]any{s.values, keysAndValues} {
		for i := 0; i < len(kv); i += 2 {
			var value any
			if i+1 < len(kv) {
				value = kv[i+1]
			}
			logger = logger.ForContext(fmt.Sprint(kv[i]), value)
		}
	}
	return logger
}

func levelFromV(level int) core.LogEventLevel {
	switch {
	case level <= 0:
		return core.InformationLevel
	case level == 1:
		return core.DebugLevel
	default:
		return core.VerboseLevel
	}
}
