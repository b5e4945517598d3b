package parser

// MessageTemplateToken represents a single token in a message template.
type MessageTemplateToken interface {
	// Render returns the string representation of the token using the provided properties.
	Render(properties map[string]any) string

	// RawText returns the exact source text the token was parsed from.
	RawText() string
}

// TextToken represents literal text in a message template.
type TextToken struct {
	// Text is the literal text content.
	Text string
}

// Render returns the literal text.
func (t *TextToken) Render(map[string]any) string {
	return t.Text
}

// RawText returns the literal text.
func (t *TextToken) RawText() string {
	return t.Text
}

// PropertyToken represents a property placeholder in a message template.
type PropertyToken struct {
	// PropertyName is the name between the braces, without the @ hint.
	PropertyName string

	// Destructure is true for {@Name} placeholders, which keep structured
	// values instead of stringifying them.
	Destructure bool

	// Raw is the placeholder as written, braces included.
	Raw string
}

// Render returns the text form of the matching property, or the placeholder
// as written when the property is absent.
func (p *PropertyToken) Render(properties map[string]any) string {
	if value, ok := properties[p.PropertyName]; ok {
		return ToText(value)
	}
	return p.Raw
}

// RawText returns the placeholder as written.
func (p *PropertyToken) RawText() string {
	return p.Raw
}
