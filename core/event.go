package core

import "time"

// LogEvent represents a single log event with all its properties.
type LogEvent struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Level is the severity of the event.
	Level LogEventLevel

	// MessageTemplate is the parsed template the event was logged with.
	MessageTemplate MessageTemplate

	// Properties contains the captured and enriched properties.
	Properties map[string]any

	// Error associated with the event, if any.
	Error error
}

// NewLogEvent creates an event stamped with the current time.
func NewLogEvent(level LogEventLevel, template MessageTemplate, properties map[string]any, err error) *LogEvent {
	if properties == nil {
		properties = make(map[string]any)
	}
	return &LogEvent{
		Timestamp:       time.Now(),
		Level:           level,
		MessageTemplate: template,
		Properties:      properties,
		Error:           err,
	}
}

// AddPropertyIfAbsent adds a property to the event if it doesn't already exist.
func (e *LogEvent) AddPropertyIfAbsent(name string, value any) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	if _, exists := e.Properties[name]; !exists {
		e.Properties[name] = value
	}
}

// AddOrUpdateProperty adds or overwrites a property in the event.
func (e *LogEvent) AddOrUpdateProperty(name string, value any) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[name] = value
}

// Clone returns a copy of the event with its own property map.
// The message template is shared.
func (e *LogEvent) Clone() *LogEvent {
	clone := *e
	clone.Properties = make(map[string]any, len(e.Properties))
	for k, v := range e.Properties {
		clone.Properties[k] = v
	}
	return &clone
}

// TemplateText returns the raw message template, or "" when none is set.
func (e *LogEvent) TemplateText() string {
	if e.MessageTemplate == nil {
		return ""
	}
	return e.MessageTemplate.Text()
}

// RenderMessage renders the message template with the event's properties.
func (e *LogEvent) RenderMessage() string {
	if e.MessageTemplate == nil {
		return ""
	}
	return e.MessageTemplate.Render(e.Properties)
}
