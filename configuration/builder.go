package configuration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/willibrandon/stlog"
	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/durable"
	"github.com/willibrandon/stlog/enrichers"
	"github.com/willibrandon/stlog/filters"
	"github.com/willibrandon/stlog/metrics"
	"github.com/willibrandon/stlog/sinks"
)

// SinkFactory creates a sink from configuration arguments.
type SinkFactory func(ctx context.Context, args map[string]any) (core.Sink, error)

// EnricherFactory creates an enricher from configuration arguments.
type EnricherFactory func(args map[string]any) (core.LogEventEnricher, error)

// FilterFactory creates a filter from configuration arguments.
type FilterFactory func(args map[string]any) (core.LogEventFilter, error)

// StoreFactory creates a durable store for a Batched sink.
type StoreFactory func(ctx context.Context, args map[string]any) (durable.Store, error)

// LoggerBuilder builds loggers from configuration documents.
type LoggerBuilder struct {
	sinkFactories     map[string]SinkFactory
	enricherFactories map[string]EnricherFactory
	filterFactories   map[string]FilterFactory
	storeFactories    map[string]StoreFactory
	registerer        prometheus.Registerer
}

// NewLoggerBuilder creates a builder with the default factories registered.
func NewLoggerBuilder() *LoggerBuilder {
	lb := &LoggerBuilder{
		sinkFactories:     make(map[string]SinkFactory),
		enricherFactories: make(map[string]EnricherFactory),
		filterFactories:   make(map[string]FilterFactory),
		storeFactories:    make(map[string]StoreFactory),
		registerer:        prometheus.DefaultRegisterer,
	}

	lb.RegisterSink("Console", createConsoleSink)
	lb.RegisterSink("File", createFileSink)
	lb.RegisterSink("Kafka", createKafkaSink)
	lb.RegisterSink("OpenSearch", createOpenSearchSink)
	lb.RegisterSink("Seq", createSeqSink)
	lb.RegisterSink("Batched", lb.createBatchedSink)
	lb.RegisterSink("CircuitBreaker", lb.createCircuitBreakerSink)

	lb.RegisterStore("Memory", func(context.Context, map[string]any) (durable.Store, error) {
		return durable.NewMemoryStore(), nil
	})
	lb.RegisterStore("File", func(_ context.Context, args map[string]any) (durable.Store, error) {
		return durable.OpenFileStore(GetString(args, "dir", ""))
	})
	lb.RegisterStore("SQLite", func(_ context.Context, args map[string]any) (durable.Store, error) {
		return durable.OpenSQLiteStore(GetString(args, "path", ""))
	})
	lb.RegisterStore("Redis", func(ctx context.Context, args map[string]any) (durable.Store, error) {
		return durable.DialRedis(ctx, GetString(args, "addr", "localhost:6379"))
	})

	lb.RegisterEnricher("MachineName", func(args map[string]any) (core.LogEventEnricher, error) {
		return enrichers.NewMachineNameEnricherWithName(GetString(args, "property", "MachineName")), nil
	})
	lb.RegisterEnricher("Process", func(map[string]any) (core.LogEventEnricher, error) {
		return enrichers.NewProcessEnricher(), nil
	})
	lb.RegisterEnricher("EnvironmentVariable", createEnvironmentEnricher)
	lb.RegisterEnricher("EventId", func(map[string]any) (core.LogEventEnricher, error) {
		return enrichers.EventID(), nil
	})
	lb.RegisterEnricher("BatchId", func(map[string]any) (core.LogEventEnricher, error) {
		return enrichers.BatchID(), nil
	})

	lb.RegisterFilter("ByLevel", func(args map[string]any) (core.LogEventFilter, error) {
		level, err := core.ParseLevel(GetString(args, "minimumLevel", DefaultMinimumLevel))
		if err != nil {
			return nil, err
		}
		return filters.NewLevelFilter(level), nil
	})
	lb.RegisterFilter("ExactLevel", func(args map[string]any) (core.LogEventFilter, error) {
		level, err := core.ParseLevel(GetString(args, "level", ""))
		if err != nil {
			return nil, err
		}
		return filters.ExactLevel(level), nil
	})
	lb.RegisterFilter("HasProperty", func(args map[string]any) (core.LogEventFilter, error) {
		name, err := requireString(args, "name")
		if err != nil {
			return nil, err
		}
		return filters.HasProperty(name), nil
	})
	lb.RegisterFilter("PropertyEquals", func(args map[string]any) (core.LogEventFilter, error) {
		name, err := requireString(args, "name")
		if err != nil {
			return nil, err
		}
		return filters.PropertyEquals(name, args["value"]), nil
	})
	lb.RegisterFilter("ExcludeMessage", func(args map[string]any) (core.LogEventFilter, error) {
		text, err := requireString(args, "contains")
		if err != nil {
			return nil, err
		}
		return filters.Not(filters.MessageContains(text)), nil
	})
	lb.RegisterFilter("MatchingTemplate", func(args map[string]any) (core.LogEventFilter, error) {
		template, err := requireString(args, "template")
		if err != nil {
			return nil, err
		}
		return filters.MatchingTemplate(template), nil
	})

	return lb
}

// RegisterSink registers a sink factory.
func (lb *LoggerBuilder) RegisterSink(name string, factory SinkFactory) {
	lb.sinkFactories[name] = factory
}

// RegisterEnricher registers an enricher factory.
func (lb *LoggerBuilder) RegisterEnricher(name string, factory EnricherFactory) {
	lb.enricherFactories[name] = factory
}

// RegisterFilter registers a filter factory.
func (lb *LoggerBuilder) RegisterFilter(name string, factory FilterFactory) {
	lb.filterFactories[name] = factory
}

// RegisterStore registers a durable store factory.
func (lb *LoggerBuilder) RegisterStore(name string, factory StoreFactory) {
	lb.storeFactories[name] = factory
}

// SetRegisterer sets where metrics are registered when a document enables
// them. The default is prometheus.DefaultRegisterer.
func (lb *LoggerBuilder) SetRegisterer(reg prometheus.Registerer) {
	lb.registerer = reg
}

// Build creates a logger. The pipeline is assembled as minimum level,
// enrichers, properties, filters and then sinks. Sinks created before a
// failure are closed.
func (lb *LoggerBuilder) Build(ctx context.Context, config *Configuration) (logger *stlog.Logger, err error) {
	cfg := config.Stlog
	c := stlog.NewConfiguration()

	level := cfg.MinimumLevel
	if level == "" {
		level = DefaultMinimumLevel
	}
	c.MinLevelName(level)

	for _, name := range cfg.Enrich {
		enricher, err := lb.createEnricher(ComponentConfig{Name: name})
		if err != nil {
			return nil, err
		}
		c.Enrich(enricher)
	}
	for _, ec := range cfg.EnrichWith {
		enricher, err := lb.createEnricher(ec)
		if err != nil {
			return nil, err
		}
		c.Enrich(enricher)
	}
	if len(cfg.Properties) > 0 {
		c.EnrichWith(cfg.Properties)
	}

	for _, fc := range cfg.Filter {
		filter, err := lb.createFilter(fc)
		if err != nil {
			return nil, err
		}
		c.FilterWith(filter)
	}

	var created []core.Sink
	defer func() {
		if err != nil {
			closeAll(ctx, created)
		}
	}()
	for _, sc := range cfg.WriteTo {
		sink, err := lb.CreateSink(ctx, sc)
		if err != nil {
			return nil, err
		}
		created = append(created, sink)
		c.WriteTo(sink)
	}

	if cfg.Metrics != nil {
		c.WithMetrics(metrics.New(lb.registerer, cfg.Metrics.Namespace))
	}

	return c.YieldErrors(cfg.YieldErrors).Create()
}

// CreateSink creates one sink from its configuration.
func (lb *LoggerBuilder) CreateSink(ctx context.Context, sc ComponentConfig) (core.Sink, error) {
	factory, ok := lb.sinkFactories[sc.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sink %q", core.ErrInvalidArgument, sc.Name)
	}
	sink, err := factory(ctx, sc.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to create sink %s: %w", sc.Name, err)
	}
	return sink, nil
}

// CreateStore creates one durable store from its configuration.
func (lb *LoggerBuilder) CreateStore(ctx context.Context, sc ComponentConfig) (durable.Store, error) {
	factory, ok := lb.storeFactories[sc.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown store %q", core.ErrInvalidArgument, sc.Name)
	}
	store, err := factory(ctx, sc.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to create store %s: %w", sc.Name, err)
	}
	return store, nil
}

func (lb *LoggerBuilder) createEnricher(ec ComponentConfig) (core.LogEventEnricher, error) {
	factory, ok := lb.enricherFactories[ec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown enricher %q", core.ErrInvalidArgument, ec.Name)
	}
	enricher, err := factory(ec.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to create enricher %s: %w", ec.Name, err)
	}
	return enricher, nil
}

func (lb *LoggerBuilder) createFilter(fc ComponentConfig) (core.LogEventFilter, error) {
	factory, ok := lb.filterFactories[fc.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown filter %q", core.ErrInvalidArgument, fc.Name)
	}
	filter, err := factory(fc.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter %s: %w", fc.Name, err)
	}
	return filter, nil
}

// Default sink factories

func createConsoleSink(_ context.Context, args map[string]any) (core.Sink, error) {
	var w io.Writer = os.Stdout
	switch target := GetString(args, "target", "stdout"); target {
	case "stdout":
	case "stderr":
		w = os.Stderr
	default:
		return nil, fmt.Errorf("%w: console target must be stdout or stderr, got %q", core.ErrInvalidArgument, target)
	}

	opts := []sinks.ConsoleOption{sinks.WithProperties(GetBool(args, "showProperties", false))}
	if _, ok := args["color"]; ok {
		opts = append(opts, sinks.WithColor(GetBool(args, "color", false)))
	}
	return sinks.NewConsoleSink(w, opts...), nil
}

func createFileSink(_ context.Context, args map[string]any) (core.Sink, error) {
	return sinks.NewFileSink(GetString(args, "path", ""))
}

func createKafkaSink(_ context.Context, args map[string]any) (core.Sink, error) {
	return sinks.NewKafkaSink(sinks.KafkaOptions{
		Brokers:     GetStrings(args, "brokers"),
		Topic:       GetString(args, "topic", ""),
		KeyProperty: GetString(args, "keyProperty", ""),
	})
}

func createOpenSearchSink(_ context.Context, args map[string]any) (core.Sink, error) {
	return sinks.NewOpenSearchSink(sinks.OpenSearchOptions{
		Addresses:   GetStrings(args, "addresses"),
		IndexPrefix: GetString(args, "indexPrefix", ""),
		Insecure:    GetBool(args, "insecure", false),
	})
}

func createSeqSink(_ context.Context, args map[string]any) (core.Sink, error) {
	retryDelay, err := GetDuration(args, "retryDelay", time.Second)
	if err != nil {
		return nil, err
	}
	return sinks.NewSeqSink(GetString(args, "serverUrl", ""),
		sinks.WithSeqAPIKey(GetString(args, "apiKey", "")),
		sinks.WithSeqCompression(GetBool(args, "compress", false)),
		sinks.WithSeqRetry(GetInt(args, "retries", 3), retryDelay),
	)
}

// createCircuitBreakerSink guards the sink named by "writeTo", sending
// refused batches to "fallback" when one is named.
func (lb *LoggerBuilder) createCircuitBreakerSink(ctx context.Context, args map[string]any) (core.Sink, error) {
	innerConfig, ok := GetComponent(args, "writeTo")
	if !ok {
		return nil, fmt.Errorf("%w: circuit breaker requires a writeTo sink", core.ErrInvalidArgument)
	}
	resetTimeout, err := GetDuration(args, "resetTimeout", 0)
	if err != nil {
		return nil, err
	}

	inner, err := lb.CreateSink(ctx, innerConfig)
	if err != nil {
		return nil, err
	}
	created := []core.Sink{inner}

	opts := sinks.CircuitBreakerOptions{
		Name:             GetString(args, "name", innerConfig.Name),
		FailureThreshold: GetInt(args, "failureThreshold", 0),
		SuccessThreshold: GetInt(args, "successThreshold", 0),
		ResetTimeout:     resetTimeout,
	}
	if fallbackConfig, ok := GetComponent(args, "fallback"); ok {
		if opts.Fallback, err = lb.CreateSink(ctx, fallbackConfig); err != nil {
			closeAll(ctx, created)
			return nil, err
		}
		created = append(created, opts.Fallback)
	}

	cb, err := sinks.NewCircuitBreakerSink(inner, opts)
	if err != nil {
		closeAll(ctx, created)
		return nil, err
	}
	return cb, nil
}

// createBatchedSink wraps the sink named by "writeTo", optionally backed by
// the store named by "store".
func (lb *LoggerBuilder) createBatchedSink(ctx context.Context, args map[string]any) (core.Sink, error) {
	innerConfig, ok := GetComponent(args, "writeTo")
	if !ok {
		return nil, fmt.Errorf("%w: batched sink requires a writeTo sink", core.ErrInvalidArgument)
	}
	period, err := GetDuration(args, "period", 0)
	if err != nil {
		return nil, err
	}

	inner, err := lb.CreateSink(ctx, innerConfig)
	if err != nil {
		return nil, err
	}

	opts := sinks.BatchedOptions{
		MaxSize:         GetInt(args, "maxSize", 0),
		Period:          period,
		DurableStoreKey: GetString(args, "storeKey", ""),
	}
	if storeConfig, ok := GetComponent(args, "store"); ok {
		if opts.DurableStore, err = lb.CreateStore(ctx, storeConfig); err != nil {
			closeAll(ctx, []core.Sink{inner})
			return nil, err
		}
	}

	batched, err := sinks.NewBatchedSink(ctx, inner, opts)
	if err != nil {
		closeAll(ctx, []core.Sink{inner})
		closeStore(opts.DurableStore)
		return nil, err
	}
	if opts.DurableStore == nil {
		return batched, nil
	}
	return &storeBackedSink{BatchedSink: batched, store: opts.DurableStore}, nil
}

// storeBackedSink closes the durable store after the batched sink.
type storeBackedSink struct {
	*sinks.BatchedSink
	store durable.Store
}

func (s *storeBackedSink) Close(ctx context.Context) error {
	return errors.Join(s.BatchedSink.Close(ctx), closeStore(s.store))
}

func closeStore(store durable.Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeAll(ctx context.Context, created []core.Sink) {
	for _, sink := range created {
		switch s := sink.(type) {
		case interface{ Close(context.Context) error }:
			_ = s.Close(ctx)
		case io.Closer:
			_ = s.Close()
		}
	}
}

func createEnvironmentEnricher(args map[string]any) (core.LogEventEnricher, error) {
	variable, err := requireString(args, "variable")
	if err != nil {
		return nil, err
	}
	property := GetString(args, "property", variable)
	if GetBool(args, "cached", true) {
		return enrichers.NewEnvironmentEnricherCached(variable, property), nil
	}
	return enrichers.NewEnvironmentEnricher(variable, property), nil
}

func requireString(args map[string]any, key string) (string, error) {
	s := GetString(args, key, "")
	if s == "" {
		return "", fmt.Errorf("%w: argument %q is required", core.ErrInvalidArgument, key)
	}
	return s, nil
}
