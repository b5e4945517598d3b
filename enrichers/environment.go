package enrichers

import (
	"os"

	"github.com/willibrandon/stlog/core"
)

// EnvironmentEnricher adds the value of an environment variable. Unset or
// empty variables add nothing.
type EnvironmentEnricher struct {
	variableName string
	propertyName string
	cached       map[string]any
	isCached     bool
}

// NewEnvironmentEnricher reads variableName on every event.
func NewEnvironmentEnricher(variableName, propertyName string) *EnvironmentEnricher {
	return &EnvironmentEnricher{variableName: variableName, propertyName: propertyName}
}

// NewEnvironmentEnricherCached reads variableName once, now.
func NewEnvironmentEnricherCached(variableName, propertyName string) *EnvironmentEnricher {
	e := NewEnvironmentEnricher(variableName, propertyName)
	e.cached = e.lookup()
	e.isCached = true
	return e
}

// Enrich returns the variable's value under the property name.
func (e *EnvironmentEnricher) Enrich(*core.LogEvent) map[string]any {
	if e.isCached {
		return e.cached
	}
	return e.lookup()
}

func (e *EnvironmentEnricher) lookup() map[string]any {
	value := os.Getenv(e.variableName)
	if value == "" {
		return nil
	}
	return map[string]any{e.propertyName: value}
}

// CommonEnvironmentEnrichers covers the usual deployment variables.
func CommonEnvironmentEnrichers() []core.LogEventEnricher {
	return []core.LogEventEnricher{
		NewEnvironmentEnricherCached("ENVIRONMENT", "Environment"),
		NewEnvironmentEnricherCached("SERVICE_NAME", "ServiceName"),
		NewEnvironmentEnricherCached("SERVICE_VERSION", "ServiceVersion"),
		NewEnvironmentEnricherCached("DEPLOYMENT_ID", "DeploymentId"),
		NewEnvironmentEnricherCached("REGION", "Region"),
	}
}
