package parser

import (
	"strconv"
	"strings"
)

// MessageTemplate represents a parsed message template.
type MessageTemplate struct {
	// Raw is the original template string.
	Raw string

	// Tokens are the parsed tokens from the template.
	Tokens []MessageTemplateToken
}

// Text returns the original template string.
func (mt *MessageTemplate) Text() string {
	return mt.Raw
}

// Render generates the final message using the provided properties.
// Placeholders without a matching property are written as they appear in
// the template.
func (mt *MessageTemplate) Render(properties map[string]any) string {
	if len(mt.Tokens) == 0 {
		return mt.Raw
	}

	var sb strings.Builder
	sb.Grow(len(mt.Raw))
	for _, token := range mt.Tokens {
		sb.WriteString(token.Render(properties))
	}
	return sb.String()
}

// BindProperties captures positional arguments into named properties.
//
// Placeholders consume arguments left to right. Arguments left over once
// every placeholder is bound are stored as "a<index>" using their original
// position; nil leftovers are skipped.
func (mt *MessageTemplate) BindProperties(args ...any) map[string]any {
	properties := make(map[string]any, len(args))
	next := 0

	for _, token := range mt.Tokens {
		if next >= len(args) {
			break
		}
		prop, ok := token.(*PropertyToken)
		if !ok {
			continue
		}
		properties[prop.PropertyName] = Capture(args[next], prop.Destructure)
		next++
	}

	for ; next < len(args); next++ {
		if args[next] == nil {
			continue
		}
		properties["a"+strconv.Itoa(next)] = Capture(args[next], false)
	}

	return properties
}

// PropertyNames returns the distinct property names in template order.
func (mt *MessageTemplate) PropertyNames() []string {
	names := make([]string, 0, len(mt.Tokens)/2)
	seen := make(map[string]bool)

	for _, token := range mt.Tokens {
		if prop, ok := token.(*PropertyToken); ok && !seen[prop.PropertyName] {
			names = append(names, prop.PropertyName)
			seen[prop.PropertyName] = true
		}
	}

	return names
}
