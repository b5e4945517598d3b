package stlog

import (
	"context"
	"fmt"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/metrics"
	"github.com/willibrandon/stlog/pipeline"
)

// LevelSpec is either a fixed level or a DynamicLevelSwitch. The zero value
// is invalid.
type LevelSpec struct {
	level       core.LogEventLevel
	levelSwitch *DynamicLevelSwitch
	valid       bool
}

// Level specifies a fixed minimum level. Any bitmask is accepted.
func Level(level core.LogEventLevel) LevelSpec {
	return LevelSpec{level: level, valid: true}
}

// Switch specifies a minimum level controlled by s.
func Switch(s *DynamicLevelSwitch) LevelSpec {
	return LevelSpec{levelSwitch: s, valid: s != nil}
}

// LoggerConfiguration assembles a pipeline in call order: each WriteTo,
// MinLevel, Enrich and Filter call appends one stage. A minimum level set
// after WriteTo therefore only applies to sinks added after it.
//
// Invalid arguments are recorded at the offending call; Create returns the
// first of them and Err reports it earlier.
type LoggerConfiguration struct {
	stages         []stageBuilder
	sinks          []core.Sink
	gates          []func(core.LogEventLevel) bool
	suppressErrors bool
	yieldErrors    bool
	metrics        *metrics.Metrics
	err            error
}

// NewConfiguration starts an empty configuration. Logger errors are
// suppressed and pipeline errors swallowed until changed.
func NewConfiguration() *LoggerConfiguration {
	return &LoggerConfiguration{suppressErrors: true}
}

func (c *LoggerConfiguration) fail(err error) *LoggerConfiguration {
	if c.err == nil {
		c.err = err
	}
	return c
}

// stageBuilder creates a fresh stage each time, so that every Create gets
// its own chain.
type stageBuilder func() (pipeline.Stage, error)

func (c *LoggerConfiguration) add(build stageBuilder) *LoggerConfiguration {
	if _, err := build(); err != nil {
		return c.fail(err)
	}
	c.stages = append(c.stages, build)
	return c
}

// WriteTo adds a sink. Events reaching this point are delivered to it and
// continue down the chain. A nil sink does not panic: the call records
// core.ErrInvalidArgument, which Err reports at once and Create returns.
func (c *LoggerConfiguration) WriteTo(sink core.Sink) *LoggerConfiguration {
	if sink == nil {
		return c.fail(fmt.Errorf("%w: sink is nil", core.ErrInvalidArgument))
	}
	c.sinks = append(c.sinks, sink)
	return c.add(func() (pipeline.Stage, error) { return pipeline.NewSinkStage(sink) })
}

// MinLevel drops events below spec for every later stage. An invalid spec
// is recorded as core.ErrInvalidArgument, reported by Err right after this
// call and returned by Create; the chain stays usable.
func (c *LoggerConfiguration) MinLevel(spec LevelSpec) *LoggerConfiguration {
	if !spec.valid {
		return c.fail(fmt.Errorf("%w: minimum level is unset", core.ErrInvalidArgument))
	}

	if sw := spec.levelSwitch; sw != nil {
		c.gate(sw.IsEnabled)
		return c.add(func() (pipeline.Stage, error) { return pipeline.NewDynamicLevelSwitchStage(sw) })
	}

	level := spec.level
	c.gate(func(target core.LogEventLevel) bool { return core.IsEnabled(level, target) })
	return c.add(func() (pipeline.Stage, error) { return pipeline.MinLevelStage(level), nil })
}

// gate records level checks that apply before the first sink, which is
// what Logger.IsEnabled evaluates.
func (c *LoggerConfiguration) gate(fn func(core.LogEventLevel) bool) {
	if len(c.sinks) == 0 {
		c.gates = append(c.gates, fn)
	}
}

// MinLevelName is MinLevel with a case-insensitive level name.
func (c *LoggerConfiguration) MinLevelName(name string) *LoggerConfiguration {
	level, err := core.ParseLevel(name)
	if err != nil {
		return c.fail(err)
	}
	return c.MinLevel(Level(level))
}

// MinLevelFatal passes only fatal events.
func (c *LoggerConfiguration) MinLevelFatal() *LoggerConfiguration {
	return c.MinLevel(Level(core.FatalLevel))
}

// MinLevelError passes error events and above.
func (c *LoggerConfiguration) MinLevelError() *LoggerConfiguration {
	return c.MinLevel(Level(core.ErrorLevel))
}

// MinLevelWarning passes warning events and above.
func (c *LoggerConfiguration) MinLevelWarning() *LoggerConfiguration {
	return c.MinLevel(Level(core.WarningLevel))
}

// MinLevelInformation passes information events and above.
func (c *LoggerConfiguration) MinLevelInformation() *LoggerConfiguration {
	return c.MinLevel(Level(core.InformationLevel))
}

// MinLevelDebug passes debug events and above.
func (c *LoggerConfiguration) MinLevelDebug() *LoggerConfiguration {
	return c.MinLevel(Level(core.DebugLevel))
}

// MinLevelVerbose passes every event.
func (c *LoggerConfiguration) MinLevelVerbose() *LoggerConfiguration {
	return c.MinLevel(Level(core.VerboseLevel))
}

// Enrich adds properties from enricher. Use core.EnricherFactory for values
// computed once per batch and core.EnricherFunc for per-event values.
func (c *LoggerConfiguration) Enrich(enricher core.LogEventEnricher) *LoggerConfiguration {
	return c.add(func() (pipeline.Stage, error) { return pipeline.NewEnrichStage(enricher) })
}

// EnrichWith adds a fixed set of properties.
func (c *LoggerConfiguration) EnrichWith(properties map[string]any) *LoggerConfiguration {
	if properties == nil {
		return c.fail(fmt.Errorf("%w: enrichment properties are nil", core.ErrInvalidArgument))
	}
	return c.add(func() (pipeline.Stage, error) { return pipeline.NewPropertiesStage(properties), nil })
}

// Filter drops events for which predicate returns false.
func (c *LoggerConfiguration) Filter(predicate func(*core.LogEvent) bool) *LoggerConfiguration {
	return c.add(func() (pipeline.Stage, error) { return pipeline.NewPredicateStage(predicate) })
}

// FilterWith drops events rejected by filter.
func (c *LoggerConfiguration) FilterWith(filter core.LogEventFilter) *LoggerConfiguration {
	return c.add(func() (pipeline.Stage, error) { return pipeline.NewFilterStage(filter) })
}

// SuppressErrors controls whether the logging methods hide errors (the
// default) or panic with them.
func (c *LoggerConfiguration) SuppressErrors(suppress bool) *LoggerConfiguration {
	c.suppressErrors = suppress
	return c
}

// YieldErrors makes the pipeline return stage errors instead of reporting
// them to selflog.
func (c *LoggerConfiguration) YieldErrors(yield bool) *LoggerConfiguration {
	c.yieldErrors = yield
	return c
}

// WithMetrics instruments the pipeline.
func (c *LoggerConfiguration) WithMetrics(m *metrics.Metrics) *LoggerConfiguration {
	c.metrics = m
	return c
}

// Err returns the first configuration error so far.
func (c *LoggerConfiguration) Err() error {
	return c.err
}

// Create builds a pipeline and returns a logger bound to it. Level
// switches in the configuration are bound to that pipeline's Flush, so a
// switch should be used by one created logger at a time.
func (c *LoggerConfiguration) Create() (*Logger, error) {
	if c.err != nil {
		return nil, c.err
	}

	p := pipeline.New(pipeline.WithYieldErrors(c.yieldErrors), pipeline.WithMetrics(c.metrics))
	for _, build := range c.stages {
		stage, err := build()
		if err != nil {
			return nil, err
		}
		if err := p.AddStage(stage); err != nil {
			return nil, err
		}
	}

	return &Logger{
		pipeline:       p,
		gates:          c.gates,
		sinks:          c.sinks,
		suppressErrors: c.suppressErrors,
		ctx:            context.Background(),
	}, nil
}
