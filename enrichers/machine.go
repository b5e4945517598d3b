// Package enrichers provides property sources for EnrichStage.
package enrichers

import (
	"os"
	"sync"

	"github.com/willibrandon/stlog/core"
)

// MachineNameEnricher adds the host name to log events.
type MachineNameEnricher struct {
	propertyName string
	once         sync.Once
	props        map[string]any
}

// NewMachineNameEnricher adds the host name as "MachineName".
func NewMachineNameEnricher() *MachineNameEnricher {
	return NewMachineNameEnricherWithName("MachineName")
}

// NewMachineNameEnricherWithName adds the host name under propertyName.
func NewMachineNameEnricherWithName(propertyName string) *MachineNameEnricher {
	return &MachineNameEnricher{propertyName: propertyName}
}

// Enrich returns the host name, looked up once.
func (m *MachineNameEnricher) Enrich(*core.LogEvent) map[string]any {
	m.once.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		m.props = map[string]any{m.propertyName: hostname}
	})
	return m.props
}
