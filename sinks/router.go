package sinks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// RoutingMode determines how the router processes matching routes.
type RoutingMode int

const (
	// FirstMatch sends each event to the first matching route only.
	FirstMatch RoutingMode = iota
	// AllMatch sends each event to every matching route.
	AllMatch
)

// defaultRouteName is reported by Match for events sent to the default sink.
const defaultRouteName = "<default>"

// Route is a named routing rule. Routes with lower Priority are tried first.
type Route struct {
	Name      string
	Priority  int
	Predicate func(*core.LogEvent) bool
	Sink      core.Sink
}

// RouterStats counts routed events.
type RouterStats struct {
	RouteHits     map[string]uint64
	DefaultHits   uint64
	TotalEvents   uint64
	DroppedEvents uint64
}

// RouterSink splits each batch between route sinks. Every route receives
// its matching events as one sub-batch, in their original order. Events
// matching no route go to the default sink, or are dropped without one.
type RouterSink struct {
	mode        RoutingMode
	defaultSink core.Sink

	mu     sync.RWMutex
	routes []Route
	stats  RouterStats
}

// NewRouterSink creates a router. defaultSink may be nil.
func NewRouterSink(mode RoutingMode, defaultSink core.Sink, routes ...Route) (*RouterSink, error) {
	r := &RouterSink{
		mode:        mode,
		defaultSink: defaultSink,
		stats:       RouterStats{RouteHits: make(map[string]uint64)},
	}
	for _, route := range routes {
		if err := r.AddRoute(route); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AddRoute adds a route at runtime, keeping priority order.
func (r *RouterSink) AddRoute(route Route) error {
	if route.Predicate == nil || route.Sink == nil {
		return fmt.Errorf("%w: route %q requires a predicate and a sink", core.ErrInvalidArgument, route.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
	slices.SortStableFunc(r.routes, func(a, b Route) int { return a.Priority - b.Priority })
	r.stats.RouteHits[route.Name] += 0
	return nil
}

// RemoveRoute removes the named route without closing its sink.
func (r *RouterSink) RemoveRoute(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.routes, func(route Route) bool { return route.Name == name })
	if i < 0 {
		return false
	}
	r.routes = slices.Delete(r.routes, i, i+1)
	delete(r.stats.RouteHits, name)
	return true
}

// Emit routes the batch. Every route sink is attempted; the errors of the
// failing ones are joined.
func (r *RouterSink) Emit(ctx context.Context, events []*core.LogEvent) error {
	r.mu.Lock()
	routes := slices.Clone(r.routes)
	batches := make([][]*core.LogEvent, len(routes))
	var unmatched []*core.LogEvent

	for _, e := range events {
		r.stats.TotalEvents++
		matched := false
		for i, route := range routes {
			if !safeMatch("RouterSink:"+route.Name, route.Predicate, e) {
				continue
			}
			matched = true
			batches[i] = append(batches[i], e)
			r.stats.RouteHits[route.Name]++
			if r.mode == FirstMatch {
				break
			}
		}
		if matched {
			continue
		}
		if r.defaultSink != nil {
			unmatched = append(unmatched, e)
			r.stats.DefaultHits++
		} else {
			r.stats.DroppedEvents++
		}
	}
	r.mu.Unlock()

	var errs []error
	for i, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		if err := routes[i].Sink.Emit(ctx, batch); err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", routes[i].Name, err))
		}
	}
	if len(unmatched) > 0 {
		if err := r.defaultSink.Emit(ctx, unmatched); err != nil {
			errs = append(errs, fmt.Errorf("default route: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every route sink and the default sink.
func (r *RouterSink) Flush(ctx context.Context) error {
	var errs []error
	for _, sink := range r.sinks() {
		errs = append(errs, sink.Flush(ctx))
	}
	return errors.Join(errs...)
}

// Close closes every route sink and the default sink that support closing.
func (r *RouterSink) Close(ctx context.Context) error {
	var errs []error
	for _, sink := range r.sinks() {
		if err := closeSink(ctx, sink); err != nil {
			if selflog.IsEnabled() {
				selflog.Printf("[RouterSink] failed to close %T: %v", sink, err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sinks returns the distinct sinks in route order, default last.
func (r *RouterSink) sinks() []core.Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Sink, 0, len(r.routes)+1)
	for _, route := range r.routes {
		if !slices.Contains(out, route.Sink) {
			out = append(out, route.Sink)
		}
	}
	if r.defaultSink != nil && !slices.Contains(out, r.defaultSink) {
		out = append(out, r.defaultSink)
	}
	return out
}

// Match returns the names of the routes that would receive event, without
// emitting it.
func (r *RouterSink) Match(event *core.LogEvent) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []string
	for _, route := range r.routes {
		if safeMatch("RouterSink:"+route.Name, route.Predicate, event) {
			matches = append(matches, route.Name)
			if r.mode == FirstMatch {
				break
			}
		}
	}
	if len(matches) == 0 && r.defaultSink != nil {
		matches = append(matches, defaultRouteName)
	}
	return matches
}

// Stats returns a copy of the routing statistics.
func (r *RouterSink) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := r.stats
	stats.RouteHits = make(map[string]uint64, len(r.stats.RouteHits))
	for name, hits := range r.stats.RouteHits {
		stats.RouteHits[name] = hits
	}
	return stats
}

// ErrorRoute routes error and fatal events to sink.
func ErrorRoute(name string, sink core.Sink) Route {
	return Route{Name: name, Predicate: LevelPredicate(core.ErrorLevel), Sink: sink}
}

// AuditRoute routes events carrying an "Audit" property to sink.
func AuditRoute(name string, sink core.Sink) Route {
	return Route{Name: name, Predicate: PropertyPredicate("Audit"), Sink: sink}
}
