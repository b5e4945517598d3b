// Package core holds the types shared by every stlog package: levels,
// events, and the sink, filter and enricher contracts.
package core

// Logger writes events from message templates. Level methods never return
// errors; implementations decide whether failures are reported or raised.
type Logger interface {
	Verbose(messageTemplate string, args ...any)
	Debug(messageTemplate string, args ...any)
	Information(messageTemplate string, args ...any)
	Warning(messageTemplate string, args ...any)
	Error(messageTemplate string, args ...any)
	Fatal(messageTemplate string, args ...any)

	// Info and Warn are short aliases.
	Info(messageTemplate string, args ...any)
	Warn(messageTemplate string, args ...any)

	Write(level LogEventLevel, messageTemplate string, args ...any)

	// WriteError attaches err to the event.
	WriteError(level LogEventLevel, err error, messageTemplate string, args ...any)

	// ForContext returns a logger that adds the property to every event.
	ForContext(propertyName string, value any) Logger

	// IsEnabled reports whether events at level would be processed.
	IsEnabled(level LogEventLevel) bool
}
