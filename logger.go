// Package stlog is a structured logging library built around message
// templates and a staged event pipeline.
//
// Loggers are assembled with NewConfiguration or New:
//
//	logger, err := stlog.NewConfiguration().
//		MinLevelInformation().
//		Enrich(enrichers.NewMachineNameEnricher()).
//		WriteTo(sinks.NewConsoleSink(os.Stdout)).
//		Create()
//
//	logger.Information("User {UserId} logged in from {IP}", 123, "10.0.0.1")
package stlog

import (
	"context"
	"errors"
	"io"
	"maps"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
	"github.com/willibrandon/stlog/pipeline"
	"github.com/willibrandon/stlog/selflog"
)

// Logger creates events from message templates and emits them through a
// pipeline. A Logger is safe for concurrent use; ForContext and WithContext
// return new loggers sharing the same pipeline.
type Logger struct {
	pipeline       *pipeline.Pipeline
	gates          []func(core.LogEventLevel) bool
	sinks          []core.Sink
	properties     map[string]any
	suppressErrors bool
	ctx            context.Context
}

var _ core.Logger = (*Logger)(nil)

// Verbose writes a verbose-level log event.
func (l *Logger) Verbose(messageTemplate string, args ...any) {
	l.Write(core.VerboseLevel, messageTemplate, args...)
}

// Debug writes a debug-level log event.
func (l *Logger) Debug(messageTemplate string, args ...any) {
	l.Write(core.DebugLevel, messageTemplate, args...)
}

// Information writes an information-level log event.
func (l *Logger) Information(messageTemplate string, args ...any) {
	l.Write(core.InformationLevel, messageTemplate, args...)
}

// Info is an alias for Information.
func (l *Logger) Info(messageTemplate string, args ...any) {
	l.Write(core.InformationLevel, messageTemplate, args...)
}

// Warning writes a warning-level log event.
func (l *Logger) Warning(messageTemplate string, args ...any) {
	l.Write(core.WarningLevel, messageTemplate, args...)
}

// Warn is an alias for Warning.
func (l *Logger) Warn(messageTemplate string, args ...any) {
	l.Write(core.WarningLevel, messageTemplate, args...)
}

// Error writes an error-level log event.
func (l *Logger) Error(messageTemplate string, args ...any) {
	l.Write(core.ErrorLevel, messageTemplate, args...)
}

// Fatal writes a fatal-level log event. It does not exit the process.
func (l *Logger) Fatal(messageTemplate string, args ...any) {
	l.Write(core.FatalLevel, messageTemplate, args...)
}

// Write writes a log event at the specified level.
func (l *Logger) Write(level core.LogEventLevel, messageTemplate string, args ...any) {
	l.WriteError(level, nil, messageTemplate, args...)
}

// WriteError writes a log event carrying err at the specified level.
//
// Failures are reported to selflog unless the logger was configured with
// SuppressErrors(false), in which case WriteError panics with the error.
func (l *Logger) WriteError(level core.LogEventLevel, err error, messageTemplate string, args ...any) {
	if emitErr := l.Emit(l.ctx, level, err, messageTemplate, args...); emitErr != nil {
		if !l.suppressErrors {
			panic(emitErr)
		}
		if selflog.IsEnabled() {
			selflog.Printf("[logger] failed to write %q: %v", messageTemplate, emitErr)
		}
	}
}

// Emit creates one event and sends it through the pipeline, returning any
// error instead of reporting it. Events below the logger's minimum level
// are dropped without parsing the template.
func (l *Logger) Emit(ctx context.Context, level core.LogEventLevel, err error, messageTemplate string, args ...any) error {
	if !l.IsEnabled(level) {
		return nil
	}

	tmpl, parseErr := parser.ParseCached(messageTemplate)
	if parseErr != nil {
		return parseErr
	}

	properties := tmpl.BindProperties(args...)
	addAbsent(properties, l.properties)
	addAbsent(properties, contextProperties(ctx))

	event := core.NewLogEvent(level, tmpl, properties, err)
	return l.pipeline.Emit(ctx, []*core.LogEvent{event})
}

func addAbsent(properties, extra map[string]any) {
	for name, value := range extra {
		if _, exists := properties[name]; !exists {
			properties[name] = parser.Capture(value, false)
		}
	}
}

// ForContext returns a logger that adds the property to every event it
// writes. Properties bound from the template take precedence. An empty
// name returns l unchanged.
func (l *Logger) ForContext(propertyName string, value any) core.Logger {
	if propertyName == "" {
		return l
	}

	child := l.clone()
	child.properties[propertyName] = value
	return child
}

// WithContext returns a logger whose convenience methods pass ctx to the
// pipeline, picking up any properties pushed onto it with PushProperty.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	child := l.clone()
	child.ctx = ctx
	return child
}

func (l *Logger) clone() *Logger {
	child := *l
	child.properties = make(map[string]any, len(l.properties)+1)
	maps.Copy(child.properties, l.properties)
	return &child
}

// IsEnabled reports whether an event at level passes the minimum levels
// configured before the first sink.
func (l *Logger) IsEnabled(level core.LogEventLevel) bool {
	for _, enabled := range l.gates {
		if !enabled(level) {
			return false
		}
	}
	return true
}

// Flush flushes the pipeline and every sink in it.
func (l *Logger) Flush(ctx context.Context) error {
	return l.pipeline.Flush(ctx)
}

// Close flushes the pipeline, then closes every sink that supports it.
// All sinks are closed even when the flush or an earlier close fails.
func (l *Logger) Close(ctx context.Context) error {
	errs := []error{l.Flush(ctx)}

	for _, sink := range l.sinks {
		switch s := sink.(type) {
		case interface{ Close(context.Context) error }:
			errs = append(errs, s.Close(ctx))
		case io.Closer:
			errs = append(errs, s.Close())
		}
	}

	return errors.Join(errs...)
}
