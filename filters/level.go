// Package filters provides reusable event predicates for FilterStage.
package filters

import (
	"github.com/willibrandon/stlog/core"
)

// LevelFilter passes events whose level is enabled by a minimum level.
type LevelFilter struct {
	minimumLevel core.LogEventLevel
}

// NewLevelFilter creates a filter for minimumLevel.
func NewLevelFilter(minimumLevel core.LogEventLevel) *LevelFilter {
	return &LevelFilter{minimumLevel: minimumLevel}
}

// IsEnabled reports whether the event's level is contained in the minimum.
func (f *LevelFilter) IsEnabled(event *core.LogEvent) bool {
	return core.IsEnabled(f.minimumLevel, event.Level)
}

// ExactLevel passes only events at exactly level.
func ExactLevel(level core.LogEventLevel) core.LogEventFilter {
	return core.FilterFunc(func(e *core.LogEvent) bool {
		return e.Level == level
	})
}
