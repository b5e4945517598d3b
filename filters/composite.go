package filters

import (
	"github.com/willibrandon/stlog/core"
)

// All passes an event only when every filter passes it. With no filters
// it passes everything.
func All(filters ...core.LogEventFilter) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		for _, f := range filters {
			if !f.IsEnabled(e) {
				return false
			}
		}
		return true
	})
}

// Any passes an event when at least one filter passes it. With no filters
// it passes nothing.
func Any(filters ...core.LogEventFilter) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		for _, f := range filters {
			if f.IsEnabled(e) {
				return true
			}
		}
		return false
	})
}

// Not inverts a filter.
func Not(filter core.LogEventFilter) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		return !filter.IsEnabled(e)
	})
}
