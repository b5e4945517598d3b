package stlog

import "github.com/willibrandon/stlog/pipeline"

// DynamicLevelSwitch changes a logger's minimum level at runtime, flushing
// the pipeline before each change. See pipeline.DynamicLevelSwitch.
type DynamicLevelSwitch = pipeline.DynamicLevelSwitch

// NewDynamicLevelSwitch creates a switch that passes everything until a
// level is set.
func NewDynamicLevelSwitch() *DynamicLevelSwitch {
	return pipeline.NewDynamicLevelSwitch()
}
