package core

// LogEventFilter determines which events proceed through the pipeline.
type LogEventFilter interface {
	// IsEnabled returns true if the event should be logged.
	IsEnabled(event *LogEvent) bool
}

// FilterFunc adapts a predicate to LogEventFilter.
type FilterFunc func(event *LogEvent) bool

// IsEnabled calls f(event).
func (f FilterFunc) IsEnabled(event *LogEvent) bool {
	return f(event)
}
