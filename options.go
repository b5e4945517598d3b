package stlog

import (
	"os"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/enrichers"
	"github.com/willibrandon/stlog/metrics"
	"github.com/willibrandon/stlog/sinks"
)

// options collects the settings of New. Unlike LoggerConfiguration, the
// order of options does not matter: levels apply first, then enrichers,
// then filters, then sinks.
type options struct {
	levels         []LevelSpec
	enrichers      []core.LogEventEnricher
	properties     map[string]any
	filters        []core.LogEventFilter
	sinks          []core.Sink
	suppressErrors bool
	yieldErrors    bool
	metrics        *metrics.Metrics
	err            error
}

// Option is a functional option for configuring a logger.
type Option func(*options)

// New creates a logger from options.
//
//	logger, err := stlog.New(
//		stlog.WithConsole(),
//		stlog.WithMinimumLevel(core.DebugLevel),
//		stlog.WithMachineName(),
//	)
func New(opts ...Option) (*Logger, error) {
	o := &options{suppressErrors: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}

	c := NewConfiguration()
	for _, level := range o.levels {
		c.MinLevel(level)
	}
	for _, enricher := range o.enrichers {
		c.Enrich(enricher)
	}
	if len(o.properties) > 0 {
		c.EnrichWith(o.properties)
	}
	for _, filter := range o.filters {
		c.FilterWith(filter)
	}
	for _, sink := range o.sinks {
		c.WriteTo(sink)
	}

	return c.SuppressErrors(o.suppressErrors).
		YieldErrors(o.yieldErrors).
		WithMetrics(o.metrics).
		Create()
}

func (o *options) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

// WithMinimumLevel sets the minimum log level.
func WithMinimumLevel(level core.LogEventLevel) Option {
	return func(o *options) {
		o.levels = append(o.levels, Level(level))
	}
}

// WithMinimumLevelName sets the minimum log level by case-insensitive name.
func WithMinimumLevelName(name string) Option {
	return func(o *options) {
		level, err := core.ParseLevel(name)
		if err != nil {
			o.fail(err)
			return
		}
		o.levels = append(o.levels, Level(level))
	}
}

// WithLevelSwitch enables dynamic level control. The switch is bound to
// the logger's pipeline, so Set flushes pending events before the new
// level applies.
func WithLevelSwitch(levelSwitch *DynamicLevelSwitch) Option {
	return func(o *options) {
		o.levels = append(o.levels, Switch(levelSwitch))
	}
}

// WithEnricher adds an enricher to the pipeline.
func WithEnricher(enricher core.LogEventEnricher) Option {
	return func(o *options) {
		o.enrichers = append(o.enrichers, enricher)
	}
}

// WithProperty adds a global property to all log events.
func WithProperty(name string, value any) Option {
	return func(o *options) {
		if o.properties == nil {
			o.properties = make(map[string]any)
		}
		o.properties[name] = value
	}
}

// WithProperties adds multiple global properties.
func WithProperties(properties map[string]any) Option {
	return func(o *options) {
		for k, v := range properties {
			WithProperty(k, v)(o)
		}
	}
}

// WithMachineName adds the MachineName property.
func WithMachineName() Option {
	return WithEnricher(enrichers.NewMachineNameEnricher())
}

// WithProcess adds the ProcessId and ProcessName properties.
func WithProcess() Option {
	return WithEnricher(enrichers.NewProcessEnricher())
}

// WithEventID gives every event a unique EventId property.
func WithEventID() Option {
	return WithEnricher(enrichers.EventID())
}

// WithFilter adds a filter to the pipeline.
func WithFilter(filter core.LogEventFilter) Option {
	return func(o *options) {
		o.filters = append(o.filters, filter)
	}
}

// WithSink adds a sink to the pipeline.
func WithSink(sink core.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

// WithConsole writes rendered events to standard output.
func WithConsole(opts ...sinks.ConsoleOption) Option {
	return WithSink(sinks.NewConsoleSink(os.Stdout, opts...))
}

// WithConditional adds a sink that only receives events matching predicate.
func WithConditional(predicate func(*core.LogEvent) bool, sink core.Sink) Option {
	return func(o *options) {
		conditional, err := sinks.NewConditionalSink(predicate, sink)
		if err != nil {
			o.fail(err)
			return
		}
		o.sinks = append(o.sinks, conditional)
	}
}

// WithRouter adds a router sink. defaultSink may be nil.
func WithRouter(mode sinks.RoutingMode, defaultSink core.Sink, routes ...sinks.Route) Option {
	return func(o *options) {
		router, err := sinks.NewRouterSink(mode, defaultSink, routes...)
		if err != nil {
			o.fail(err)
			return
		}
		o.sinks = append(o.sinks, router)
	}
}

// WithSuppressErrors controls whether logging methods hide errors (the
// default) or panic with them.
func WithSuppressErrors(suppress bool) Option {
	return func(o *options) {
		o.suppressErrors = suppress
	}
}

// WithYieldErrors makes Emit and Flush return sink errors instead of
// reporting them to selflog.
func WithYieldErrors() Option {
	return func(o *options) {
		o.yieldErrors = true
	}
}

// WithMetrics instruments the logger's pipeline.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
