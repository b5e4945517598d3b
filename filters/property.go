package filters

import (
	"strings"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/parser"
)

// HasProperty passes events that carry the named property.
func HasProperty(name string) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		_, ok := e.Properties[name]
		return ok
	})
}

// PropertyEquals passes events whose property renders to the same text as
// value, so 42 matches both int 42 and the string "42" read from config.
func PropertyEquals(name string, value any) core.LogEventFilter {
	want := parser.ToText(value)
	return core.FilterFunc(func(e *core.LogEvent) bool {
		v, ok := e.Properties[name]
		return ok && parser.ToText(v) == want
	})
}

// MatchingTemplate passes events logged with exactly the given template.
func MatchingTemplate(template string) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		return e.TemplateText() == template
	})
}

// MessageContains passes events whose rendered message contains substr.
func MessageContains(substr string) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		return strings.Contains(e.RenderMessage(), substr)
	})
}
