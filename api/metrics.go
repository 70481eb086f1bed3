package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const (
	traceBuffer    = 1000
	samplesByRoute = 500
)

// RouteMetrics aggregates request timings of one route template
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"-"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	P50Time     time.Duration `json:"p50Time"`
	P95Time     time.Duration `json:"p95Time"`
	LastRequest time.Time     `json:"lastRequest"`

	samples []time.Duration
}

// MetricsSummary is the overall request picture since the window started
type MetricsSummary struct {
	TotalRequests int64     `json:"totalRequests"`
	TotalErrors   int64     `json:"totalErrors"`
	ErrorRate     float64   `json:"errorRate"`
	RouteCount    int       `json:"routeCount"`
	WindowStart   time.Time `json:"windowStart"`
}

type requestSample struct {
	method   string
	path     string
	status   int
	duration time.Duration
	at       time.Time
}

// MetricsCollector aggregates per-route request metrics in memory. Recording
// never blocks a request: samples arriving while the buffer is full are dropped.
type MetricsCollector struct {
	mu            sync.RWMutex
	routes        map[string]*RouteMetrics
	totalRequests int64
	totalErrors   int64
	windowStart   time.Time
	samples       chan requestSample
}

// NewMetricsCollector starts the background aggregation, which runs until ctx is done
func NewMetricsCollector(ctx context.Context) *MetricsCollector {
	mc := &MetricsCollector{
		routes:      make(map[string]*RouteMetrics),
		windowStart: time.Now(),
		samples:     make(chan requestSample, traceBuffer),
	}
	go mc.process(ctx)
	return mc
}

// Middleware records the outcome of every request matched by a mux route,
// keyed by the route template rather than the concrete path
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		mc.Record(r.Method, path, wrapped.statusCode, time.Since(start))
	})
}

// Record queues one request sample
func (mc *MetricsCollector) Record(method, path string, status int, duration time.Duration) {
	select {
	case mc.samples <- requestSample{method: method, path: path, status: status, duration: duration, at: time.Now()}:
	default:
	}
}

func (mc *MetricsCollector) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-mc.samples:
			mc.add(s)
		}
	}
}

func (mc *MetricsCollector) add(s requestSample) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := s.method + " " + s.path
	m, ok := mc.routes[key]
	if !ok {
		m = &RouteMetrics{Method: s.method, Path: s.path, MinTime: s.duration}
		mc.routes[key] = m
	}

	mc.totalRequests++
	m.Count++
	if s.status >= http.StatusBadRequest {
		mc.totalErrors++
		m.ErrorCount++
	}
	m.TotalTime += s.duration
	m.AvgTime = m.TotalTime / time.Duration(m.Count)
	if s.duration < m.MinTime {
		m.MinTime = s.duration
	}
	if s.duration > m.MaxTime {
		m.MaxTime = s.duration
	}
	m.LastRequest = s.at

	m.samples = append(m.samples, s.duration)
	if len(m.samples) > samplesByRoute {
		m.samples = m.samples[len(m.samples)-samplesByRoute:]
	}
	m.P50Time, m.P95Time = percentiles(m.samples)
}

func percentiles(samples []time.Duration) (time.Duration, time.Duration) {
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(q float64) time.Duration {
		idx := int(float64(len(sorted)) * q)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return at(0.50), at(0.95)
}

// Summary returns the totals across every route
func (mc *MetricsCollector) Summary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var errorRate float64
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	return MetricsSummary{
		TotalRequests: mc.totalRequests,
		TotalErrors:   mc.totalErrors,
		ErrorRate:     errorRate,
		RouteCount:    len(mc.routes),
		WindowStart:   mc.windowStart,
	}
}

// SlowestRoutes returns up to limit routes ordered by average time, slowest first
func (mc *MetricsCollector) SlowestRoutes(limit int) []RouteMetrics {
	mc.mu.RLock()
	routes := make([]RouteMetrics, 0, len(mc.routes))
	for _, m := range mc.routes {
		copied := *m
		copied.samples = nil
		routes = append(routes, copied)
	}
	mc.mu.RUnlock()

	sort.Slice(routes, func(i, j int) bool { return routes[i].AvgTime > routes[j].AvgTime })
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}
