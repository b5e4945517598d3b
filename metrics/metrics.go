// Package metrics exposes Prometheus instrumentation for pipelines and
// batched sinks. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "stlog"

// Metrics groups the collectors shared by the pipeline and sinks.
type Metrics struct {
	eventsEmitted  prometheus.Counter
	eventsQueued   prometheus.Counter
	flushes        prometheus.Counter
	flushDuration  prometheus.Histogram
	stageErrors    *prometheus.CounterVec
	batches        *prometheus.CounterVec
	batchSize      prometheus.Histogram
	pendingEvents  prometheus.Gauge
	replayedEvents prometheus.Counter
}

// New registers the collectors with reg. A nil reg creates unregistered
// collectors, which is convenient in tests.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		eventsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_events_total",
			Help:      "The total number of events submitted to pipelines",
		}),
		eventsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_queued_events_total",
			Help:      "The total number of events held back while a flush was in progress",
		}),
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_flushes_total",
			Help:      "The total number of pipeline flushes started",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_flush_duration_seconds",
			Help:      "The duration of pipeline flushes",
			Buckets:   prometheus.DefBuckets,
		}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "The total number of stage errors, by operation",
		}, []string{"op"}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batched_sink_batches_total",
			Help:      "The total number of batches handed to the inner sink, by outcome",
		}, []string{"outcome"}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batched_sink_batch_size",
			Help:      "The number of events in each delivered batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		pendingEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batched_sink_pending_events",
			Help:      "The number of events waiting in the current batch",
		}),
		replayedEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batched_sink_replayed_events_total",
			Help:      "The total number of events restored from a durable store",
		}),
	}
}

// ObserveEmit counts events submitted to a pipeline.
func (m *Metrics) ObserveEmit(n int) {
	if m == nil {
		return
	}
	m.eventsEmitted.Add(float64(n))
}

// ObserveQueued counts events queued behind an in-flight flush.
func (m *Metrics) ObserveQueued(n int) {
	if m == nil {
		return
	}
	m.eventsQueued.Add(float64(n))
}

// ObserveFlush records a completed pipeline flush.
func (m *Metrics) ObserveFlush(d time.Duration) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.flushDuration.Observe(d.Seconds())
}

// ObserveStageError counts an error raised by a stage during op.
func (m *Metrics) ObserveStageError(op string) {
	if m == nil {
		return
	}
	m.stageErrors.WithLabelValues(op).Inc()
}

// ObserveBatch records one delivery attempt of a batch.
func (m *Metrics) ObserveBatch(size int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.batches.WithLabelValues(outcome).Inc()
	m.batchSize.Observe(float64(size))
}

// SetPending reports the size of the batch being collected.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pendingEvents.Set(float64(n))
}

// ObserveReplay counts events restored from durable storage.
func (m *Metrics) ObserveReplay(n int) {
	if m == nil {
		return
	}
	m.replayedEvents.Add(float64(n))
}
