package api

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Send outcomes counted by Metrics.ChatSend
const (
	OutcomeReplied  = "replied"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics holds the Prometheus collectors exposed on /metrics
type Metrics struct {
	Registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	chatSends       *prometheus.CounterVec
	feedback        *prometheus.CounterVec
	responderErrors prometheus.Counter
	wsConnections   prometheus.Gauge
}

// NewMetrics registers the service collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicchat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicchat",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		chatSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicchat",
			Name:      "chat_sends_total",
			Help:      "Chat messages received, by outcome.",
		}, []string{"outcome"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicchat",
			Name:      "feedback_total",
			Help:      "Feedback submissions by value and whether they were stored.",
		}, []string{"value", "result"}),
		responderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicchat",
			Name:      "responder_errors_total",
			Help:      "Failed calls to the upstream chatbot.",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinicchat",
			Name:      "websocket_connections",
			Help:      "Open chat websocket connections.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.chatSends,
		m.feedback,
		m.responderErrors,
		m.wsConnections,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ChatSend counts a chat send by outcome
func (m *Metrics) ChatSend(outcome string) {
	if m == nil {
		return
	}
	m.chatSends.WithLabelValues(outcome).Inc()
}

// Feedback counts a feedback submission
func (m *Metrics) Feedback(positive, stored bool) {
	if m == nil {
		return
	}
	value, result := "negative", "duplicate"
	if positive {
		value = "positive"
	}
	if stored {
		result = "recorded"
	}
	m.feedback.WithLabelValues(value, result).Inc()
}

// ResponderFailed counts an upstream chatbot failure
func (m *Metrics) ResponderFailed() {
	if m == nil {
		return
	}
	m.responderErrors.Inc()
}

// WebsocketOpened and WebsocketClosed track live hub connections
func (m *Metrics) WebsocketOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// WebsocketClosed is the counterpart of WebsocketOpened
func (m *Metrics) WebsocketClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

// RequestTrace tracks timing for a single request
type RequestTrace struct {
	RequestID     string        `json:"requestId"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	Route         string        `json:"route"`
	Status        int           `json:"status"`
	StartTime     time.Time     `json:"startTime"`
	TotalDuration time.Duration `json:"totalDuration"`
	Error         string        `json:"error,omitempty"`
}

// RouteMetrics aggregates metrics for a specific route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	P95Time     time.Duration `json:"p95Time"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsCollector keeps recent traces and per-route aggregates in memory
// for the admin metrics endpoints. Recording never blocks a request: traces
// are queued on a buffered channel and dropped when it is full.
type MetricsCollector struct {
	mu             sync.RWMutex
	traces         []RequestTrace
	maxTraces      int
	routeMetrics   map[string]*RouteMetrics
	windowStart    time.Time
	windowDuration time.Duration
	totalRequests  int64
	totalErrors    int64
	traceChan      chan RequestTrace
	stopChan       chan struct{}
	stopOnce       sync.Once
}

// NewMetricsCollector starts a collector keeping at most maxTraces traces
// from the last windowDuration
func NewMetricsCollector(maxTraces int, windowDuration time.Duration) *MetricsCollector {
	if maxTraces <= 0 {
		maxTraces = 10000
	}
	if windowDuration <= 0 {
		windowDuration = time.Hour
	}
	mc := &MetricsCollector{
		traces:         make([]RequestTrace, 0, maxTraces),
		maxTraces:      maxTraces,
		routeMetrics:   make(map[string]*RouteMetrics),
		windowStart:    time.Now(),
		windowDuration: windowDuration,
		traceChan:      make(chan RequestTrace, 1000),
		stopChan:       make(chan struct{}),
	}

	go mc.processTraces()
	go mc.cleanup()
	return mc
}

// Stop ends the background goroutines
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
}

// RecordTrace queues a trace, dropping it if the queue is full
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	if mc == nil {
		return
	}
	select {
	case mc.traceChan <- trace:
	default:
	}
}

func (mc *MetricsCollector) processTraces() {
	for {
		select {
		case trace := <-mc.traceChan:
			mc.processTrace(trace)
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *MetricsCollector) processTrace(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.traces) >= mc.maxTraces {
		mc.traces = mc.traces[1:]
	}
	mc.traces = append(mc.traces, trace)

	route := trace.Route
	if route == "" {
		route = normalizeRoutePath(trace.Path)
	}
	routeKey := trace.Method + " " + route

	metrics, exists := mc.routeMetrics[routeKey]
	if !exists {
		metrics = &RouteMetrics{
			Method:  trace.Method,
			Path:    route,
			MinTime: trace.TotalDuration,
		}
		mc.routeMetrics[routeKey] = metrics
	}

	metrics.Count++
	metrics.TotalTime += trace.TotalDuration
	metrics.AvgTime = metrics.TotalTime / time.Duration(metrics.Count)
	metrics.LastRequest = trace.StartTime

	if trace.TotalDuration < metrics.MinTime {
		metrics.MinTime = trace.TotalDuration
	}
	if trace.TotalDuration > metrics.MaxTime {
		metrics.MaxTime = trace.TotalDuration
	}

	if trace.Status >= 400 {
		metrics.ErrorCount++
		mc.totalErrors++
	}
	mc.totalRequests++

	if metrics.Count%100 == 0 {
		mc.calculateP95(routeKey)
	}
}

// GetRouteMetrics returns a copy of the per-route aggregates
func (mc *MetricsCollector) GetRouteMetrics() map[string]*RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*RouteMetrics, len(mc.routeMetrics))
	for k, v := range mc.routeMetrics {
		metrics := *v
		result[k] = &metrics
	}
	return result
}

// GetSlowestRoutes returns up to limit routes ordered by average time
func (mc *MetricsCollector) GetSlowestRoutes(limit int) []RouteMetrics {
	mc.mu.RLock()
	routes := make([]RouteMetrics, 0, len(mc.routeMetrics))
	for _, metrics := range mc.routeMetrics {
		routes = append(routes, *metrics)
	}
	mc.mu.RUnlock()

	sort.Slice(routes, func(i, j int) bool { return routes[i].AvgTime > routes[j].AvgTime })
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}

// GetSummary returns overall summary metrics
func (mc *MetricsCollector) GetSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	elapsed := time.Since(mc.windowStart)
	if elapsed > mc.windowDuration {
		elapsed = mc.windowDuration
	}

	var tps float64
	if elapsed.Seconds() > 0 {
		tps = float64(mc.totalRequests) / elapsed.Seconds()
	}

	var errorRate float64
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}

	return map[string]interface{}{
		"totalRequests": mc.totalRequests,
		"totalErrors":   mc.totalErrors,
		"errorRate":     errorRate,
		"tps":           tps,
		"windowStart":   mc.windowStart,
		"windowEnd":     mc.windowStart.Add(mc.windowDuration),
		"routeCount":    len(mc.routeMetrics),
		"traceCount":    len(mc.traces),
	}
}

var (
	objectIDSegment = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
	uuidSegment     = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
)

// normalizeRoutePath replaces ids in a path with placeholders, e.g.
// /api/chat/history/0b8f...-e1 -> /api/chat/history/{id}
func normalizeRoutePath(path string) string {
	path = objectIDSegment.ReplaceAllString(path, "/{id}$1")
	path = uuidSegment.ReplaceAllString(path, "/{id}$1")
	path = strings.ReplaceAll(path, "//", "/")

	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

func (mc *MetricsCollector) calculateP95(routeKey string) {
	metrics := mc.routeMetrics[routeKey]
	if metrics == nil {
		return
	}

	var durations []time.Duration
	for _, trace := range mc.traces {
		route := trace.Route
		if route == "" {
			route = normalizeRoutePath(trace.Path)
		}
		if trace.Method+" "+route == routeKey {
			durations = append(durations, trace.TotalDuration)
		}
	}
	if len(durations) == 0 {
		return
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	idx := int(float64(len(durations)) * 0.95)
	if idx >= len(durations) {
		idx = len(durations) - 1
	}
	metrics.P95Time = durations[idx]
}

// cleanup removes old traces and resets the window periodically
func (mc *MetricsCollector) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stopChan:
			return
		case <-ticker.C:
		}

		mc.mu.Lock()
		now := time.Now()

		cutoff := now.Add(-mc.windowDuration)
		var validTraces []RequestTrace
		for _, trace := range mc.traces {
			if trace.StartTime.After(cutoff) {
				validTraces = append(validTraces, trace)
			}
		}
		mc.traces = validTraces

		if now.Sub(mc.windowStart) > mc.windowDuration {
			mc.windowStart = now
		}
		mc.mu.Unlock()
	}
}
