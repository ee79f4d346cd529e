package handlers

import (
	"errors"
	"net/http"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/config"
)

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
			"p95Time":     route.P95Time.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// MetricsHandler serves the in-memory request metrics to staff
type MetricsHandler struct {
	Collector *api.MetricsCollector
}

// GetMetricsSummary returns the request summary and the slowest routes
func (m MetricsHandler) GetMetricsSummary(w http.ResponseWriter, r *http.Request) {
	if m.Collector == nil {
		config.ErrorStatus("metrics are disabled", http.StatusServiceUnavailable, w, errors.New("no collector"))
		return
	}
	limit := queryInt(r, "limit", 20)

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":       m.Collector.GetSummary(),
		"slowestRoutes": formatRouteMetrics(m.Collector.GetSlowestRoutes(limit)),
	})
}

// GetRouteMetrics returns metrics for one route, e.g. ?route=POST /api/chat/send
func (m MetricsHandler) GetRouteMetrics(w http.ResponseWriter, r *http.Request) {
	if m.Collector == nil {
		config.ErrorStatus("metrics are disabled", http.StatusServiceUnavailable, w, errors.New("no collector"))
		return
	}
	route := r.URL.Query().Get("route")
	if route == "" {
		config.ErrorStatus("route parameter required", http.StatusBadRequest, w, errors.New("missing route"))
		return
	}

	routeData, exists := m.Collector.GetRouteMetrics()[route]
	if !exists {
		config.ErrorStatus("route not found", http.StatusNotFound, w, errors.New("unknown route"))
		return
	}
	api.WriteJSON(w, http.StatusOK, routeData)
}
