// Package api serves the controller's read-only HTTP surface: the current
// status, rolling count statistics, Prometheus metrics and a health check.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/intersection/internal/controller"
	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/version"
)

// ANSI escape codes for the request log
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// StatusProvider is the read side of the controller.
type StatusProvider interface {
	Snapshot() controller.Snapshot
	Stats() monitoring.CountSummary
}

// Config wires a Server.
type Config struct {
	Controller StatusProvider
	// Metrics serves /metrics; nil leaves the route unregistered.
	Metrics http.Handler
	RunID   string
	Feed    string
	Lights  string
}

type Server struct {
	cfg Config
}

func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	controller.Snapshot
	RunID   string       `json:"run_id"`
	Feed    string       `json:"feed"`
	Lights  string       `json:"lights"`
	Version version.Info `json:"version"`
}

// ServeMux registers the API routes on a fresh mux. Callers may attach
// further debug routes to the returned mux.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", getOnly(s.showStatus))
	mux.HandleFunc("/api/stats", getOnly(s.showStats))
	mux.HandleFunc("/healthz", getOnly(s.healthz))
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics)
	}
	return mux
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Snapshot: s.cfg.Controller.Snapshot(),
		RunID:    s.cfg.RunID,
		Feed:     s.cfg.Feed,
		Lights:   s.cfg.Lights,
		Version:  version.Get(),
	})
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Controller.Stats())
}

// healthz reports 503 until the controller has shown the initial lights and
// written the initial status.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	snap := s.cfg.Controller.Snapshot()
	if snap.StartedAt.IsZero() {
		writeJSONError(w, http.StatusServiceUnavailable, "controller not started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"frames_processed": snap.FramesProcessed,
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration of every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
