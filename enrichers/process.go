package enrichers

import (
	"os"
	"path/filepath"

	"github.com/willibrandon/stlog/core"
)

// ProcessEnricher adds ProcessId and ProcessName to log events.
type ProcessEnricher struct {
	props map[string]any
}

// NewProcessEnricher captures the current process's id and executable name.
func NewProcessEnricher() *ProcessEnricher {
	name := ""
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	return &ProcessEnricher{props: map[string]any{
		"ProcessId":   os.Getpid(),
		"ProcessName": name,
	}}
}

// Enrich returns the process properties.
func (p *ProcessEnricher) Enrich(*core.LogEvent) map[string]any {
	return p.props
}
