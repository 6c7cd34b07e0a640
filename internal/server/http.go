package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "linkgraph_http_requests_total",
	Help: "HTTP requests by status code and method",
}, []string{"code", "method"})

var httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "linkgraph_http_request_duration_seconds",
	Help:    "HTTP request latency by status code and method",
	Buckets: prometheus.DefBuckets,
}, []string{"code", "method"})

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and
// GET /metrics) must include a valid Authorization: Bearer <token> header.
func (s *GraphServer) NewHTTPHandler(authToken string) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/health", s.handleHealth)
	api.HandleFunc("GET /v1/graph/{key}", s.handleGetGraph)
	api.HandleFunc("POST /v1/graph/bulk", s.handleBulk)
	api.HandleFunc("GET /v1/graph/{key}/path", s.handleGetPath)
	api.HandleFunc("GET /v1/graph/{key}/cycles", s.handleGetCycles)
	api.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	instrumented := promhttp.InstrumentHandlerDuration(httpDuration,
		promhttp.InstrumentHandlerCounter(httpRequests, api))

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", instrumented)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *GraphServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeBuildError maps an engine error onto a status code.
func (s *GraphServer) writeBuildError(w http.ResponseWriter, err error) {
	switch {
	case isInputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "traversal timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		s.logger.Error("building graph", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to build graph")
	}
}
