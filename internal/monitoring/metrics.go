package monitoring

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the controller's counters. Fields are atomics so the HTTP
// scrape path can read them while the frame loop updates them.
type Metrics struct {
	FramesProcessed    atomic.Uint64
	FramesUndecodable  atomic.Uint64
	DetectionsAccepted atomic.Uint64
	DetectionsRejected atomic.Uint64
	Transitions        atomic.Uint64
	StatusWrites       atomic.Uint64
	StatusWriteErrors  atomic.Uint64
	LightErrors        atomic.Uint64

	// Last frame's street totals and the currently preferred street
	// (0 = A, 1 = B).
	StreetACount    atomic.Int64
	StreetBCount    atomic.Int64
	PreferredStreet atomic.Int64

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics instance with its own Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) gauge(name, help string, v *atomic.Int64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) register() {
	m.counter("intersection_frames_processed_total", "Frames run through the controller", &m.FramesProcessed)
	m.counter("intersection_frames_undecodable_total", "Feed payloads that could not be decoded", &m.FramesUndecodable)
	m.counter("intersection_detections_accepted_total", "Detections passing the label and confidence filter", &m.DetectionsAccepted)
	m.counter("intersection_detections_rejected_total", "Detections dropped by the label and confidence filter", &m.DetectionsRejected)
	m.counter("intersection_transitions_total", "Preferred street switches", &m.Transitions)
	m.counter("intersection_status_writes_total", "Successful status snapshot writes", &m.StatusWrites)
	m.counter("intersection_status_write_errors_total", "Failed status snapshot writes", &m.StatusWriteErrors)
	m.counter("intersection_light_errors_total", "Failed light commands", &m.LightErrors)

	m.gauge("intersection_street_a_count", "Vehicles counted in street A zones on the last frame", &m.StreetACount)
	m.gauge("intersection_street_b_count", "Vehicles counted in street B zones on the last frame", &m.StreetBCount)
	m.gauge("intersection_preferred_street", "Preferred street (0 = A, 1 = B)", &m.PreferredStreet)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
