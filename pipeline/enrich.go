package pipeline

import (
	"context"
	"fmt"

	"github.com/willibrandon/stlog/core"
)

// EnrichStage adds properties to every event of a batch and forwards the
// whole batch.
//
// Properties already present on an event are kept. Enriched events are
// copies, so stages and sinks earlier in the chain never see properties
// added here. A core.EnricherFactory is evaluated once per batch.
type EnrichStage struct {
	Link
	enricher core.LogEventEnricher
}

// NewEnrichStage creates a stage that merges the enricher's properties.
func NewEnrichStage(enricher core.LogEventEnricher) (*EnrichStage, error) {
	if enricher == nil {
		return nil, fmt.Errorf("%w: enricher is nil", core.ErrInvalidArgument)
	}
	if f, ok := enricher.(core.EnricherFactory); ok && f == nil {
		return nil, fmt.Errorf("%w: enricher factory is nil", core.ErrInvalidArgument)
	}
	if f, ok := enricher.(core.EnricherFunc); ok && f == nil {
		return nil, fmt.Errorf("%w: enricher func is nil", core.ErrInvalidArgument)
	}
	return &EnrichStage{enricher: enricher}, nil
}

// NewPropertiesStage adds a fixed set of properties to every event.
func NewPropertiesStage(properties map[string]any) *EnrichStage {
	return &EnrichStage{enricher: core.Properties(properties)}
}

// Emit enriches and forwards the batch.
func (s *EnrichStage) Emit(ctx context.Context, events []*core.LogEvent) error {
	if s.Next() == nil || len(events) == 0 {
		return nil
	}

	factory, perBatch := s.enricher.(core.EnricherFactory)
	var batchProps map[string]any
	if perBatch {
		batchProps = factory()
	}

	out := make([]*core.LogEvent, len(events))
	for i, e := range events {
		props := batchProps
		if !perBatch {
			props = s.enricher.Enrich(e)
		}
		if len(props) == 0 {
			out[i] = e
			continue
		}

		enriched := e.Clone()
		for name, value := range props {
			enriched.AddPropertyIfAbsent(name, value)
		}
		out[i] = enriched
	}
	return s.Forward(ctx, out)
}
