package core

// MessageTemplate is a parsed message template shared by every event that
// was logged with it.
type MessageTemplate interface {
	// Text returns the original template string.
	Text() string

	// Render produces the message text for the given properties.
	Render(properties map[string]any) string
}

// Timestamped is implemented by date-like values. Captured values that
// implement it are kept structured and rendered with their ISO timestamp.
type Timestamped interface {
	ISOTimestamp() string
}
