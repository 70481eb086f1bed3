package handlers

import (
	"net/http"
	"strconv"

	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/api/scheduler"
)

const defaultRouteLimit = 20

// TickSource reports the most recent reminder run
type TickSource interface {
	LastTick() (scheduler.Tick, bool)
}

// MetricsHandler exposes request metrics and the state of the reminder poller
type MetricsHandler struct {
	Collector *api.MetricsCollector
	Ticks     TickSource
	Hub       *ReminderHub
}

type metricsResponse struct {
	Summary     api.MetricsSummary       `json:"summary"`
	Routes      []map[string]interface{} `json:"routes"`
	LastTick    *scheduler.Tick          `json:"lastReminderTick,omitempty"`
	FeedClients int                      `json:"feedClients"`
}

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []api.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"path":        route.Path,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"p50Time":     route.P50Time.Milliseconds(),
			"p95Time":     route.P95Time.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// GetMetricsHandler returns the request summary, the slowest routes (?limit=)
// and the last reminder tick
func (m MetricsHandler) GetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRouteLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	resp := metricsResponse{
		Summary: m.Collector.Summary(),
		Routes:  formatRouteMetrics(m.Collector.SlowestRoutes(limit)),
	}
	if m.Ticks != nil {
		if tick, ok := m.Ticks.LastTick(); ok {
			resp.LastTick = &tick
		}
	}
	if m.Hub != nil {
		resp.FeedClients = m.Hub.Clients()
	}
	ok(w, "", resp)
}
