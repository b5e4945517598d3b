package core

// LogEventEnricher supplies additional properties for log events.
//
// Enrichers never remove properties, and properties already present on an
// event are kept: the caller's explicit values win over enrichment.
type LogEventEnricher interface {
	// Enrich returns the properties to merge into the event.
	Enrich(event *LogEvent) map[string]any
}

// EnricherFunc computes properties for each event individually.
type EnricherFunc func(event *LogEvent) map[string]any

// Enrich calls f(event).
func (f EnricherFunc) Enrich(event *LogEvent) map[string]any {
	return f(event)
}

// Properties is a fixed set of properties added to every event.
type Properties map[string]any

// Enrich returns p for every event.
func (p Properties) Enrich(*LogEvent) map[string]any {
	return p
}

// EnricherFactory produces a property set once per batch. Every event of
// the batch receives the same values.
type EnricherFactory func() map[string]any

// Enrich calls the factory. Batch-aware stages call it once per batch.
func (f EnricherFactory) Enrich(*LogEvent) map[string]any {
	return f()
}
