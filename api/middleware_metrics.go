package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// slowRequest is the latency above which a request is logged
const slowRequest = time.Second

// MetricsMiddleware times every request into the Prometheus metrics and the
// in-memory collector. Either may be nil.
func MetricsMiddleware(m *Metrics, mc *MetricsCollector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/metrics" || path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			requestID := uuid.New().String()
			w.Header().Set("X-Request-Id", requestID)

			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(wrappedWriter, r)

			totalDuration := time.Since(startTime)
			route := routeTemplate(r)

			m.ObserveRequest(r.Method, route, wrappedWriter.statusCode, totalDuration)

			trace := RequestTrace{
				RequestID:     requestID,
				Method:        r.Method,
				Path:          path,
				Route:         route,
				Status:        wrappedWriter.statusCode,
				StartTime:     startTime,
				TotalDuration: totalDuration,
			}
			if wrappedWriter.statusCode >= 400 {
				trace.Error = http.StatusText(wrappedWriter.statusCode)
			}
			mc.RecordTrace(trace)

			if totalDuration > slowRequest {
				zap.S().Warnw("Slow request detected",
					"requestId", requestID,
					"method", r.Method,
					"path", path,
					"duration", totalDuration,
					"status", wrappedWriter.statusCode,
				)
			}
		})
	}
}

// routeTemplate returns the mux route pattern so ids don't explode label cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return normalizeRoutePath(r.URL.Path)
}

// responseWriter wraps http.ResponseWriter to capture status code
// It implements http.Hijacker to support WebSocket upgrades
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}
