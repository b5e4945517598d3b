package enrichers

import (
	"github.com/google/uuid"

	"github.com/willibrandon/stlog/core"
)

// EventID gives every event its own "EventId" UUID.
func EventID() core.LogEventEnricher {
	return core.EnricherFunc(func(*core.LogEvent) map[string]any {
		return map[string]any{"EventId": uuid.NewString()}
	})
}

// BatchID tags all events of a batch with one shared "BatchId" UUID.
func BatchID() core.EnricherFactory {
	return func() map[string]any {
		return map[string]any{"BatchId": uuid.NewString()}
	}
}
