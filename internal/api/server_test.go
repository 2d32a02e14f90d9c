package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/intersection/internal/controller"
	"github.com/banshee-data/intersection/internal/detection"
	"github.com/banshee-data/intersection/internal/lights"
	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/testutil"
	"github.com/banshee-data/intersection/internal/timeutil"
	"github.com/banshee-data/intersection/internal/version"
	"github.com/banshee-data/intersection/internal/zone"
)

func newTestServer(t *testing.T, start bool) (*Server, *controller.Controller, *monitoring.Metrics) {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	metrics := monitoring.NewMetrics()
	ctrl := controller.New(controller.Options{
		Threshold: 1,
		Lights:    lights.NewRecorder(),
		Metrics:   metrics,
		Clock:     timeutil.NewMockClock(time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)),
	})
	if start {
		ctrl.Start(context.Background())
	}
	srv := NewServer(Config{
		Controller: ctrl,
		Metrics:    metrics.Handler(),
		RunID:      "6f1c3a52-6a8e-4d0a-9f77-0c2c1b1f4e10",
		Feed:       "udp :5600",
		Lights:     "gpio",
	})
	return srv, ctrl, metrics
}

func TestShowStatus(t *testing.T) {
	srv, ctrl, _ := newTestServer(t, true)
	ctrl.ProcessFrame(context.Background(), []detection.Detection{
		{Label: "car", Confidence: 0.9, BBox: detection.BBox{XMin: 0.7, YMin: 0.7, Width: 0.1, Height: 0.1}},
		{Label: "car", Confidence: 0.9, BBox: detection.BBox{XMin: 0.1, YMin: 0.6, Width: 0.1, Height: 0.1}},
		{Label: "car", Confidence: 0.9, BBox: detection.BBox{XMin: 0.2, YMin: 0.7, Width: 0.1, Height: 0.1}},
	})

	rec := testutil.Do(srv.ServeMux(), http.MethodGet, "/api/status")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "application/json")

	got := testutil.DecodeJSON[StatusResponse](t, rec)
	assert.Equal(t, zone.StreetB, got.Status.PreferredStreet)
	assert.Equal(t, 2, got.Status.StreetACount)
	assert.Equal(t, 1, got.Status.StreetBCount)
	assert.Equal(t, uint64(1), got.FramesProcessed)
	assert.Equal(t, uint64(1), got.Transitions)
	assert.Equal(t, 1, got.Threshold)
	assert.Equal(t, "6f1c3a52-6a8e-4d0a-9f77-0c2c1b1f4e10", got.RunID)
	assert.Equal(t, "gpio", got.Lights)
	assert.Equal(t, version.Get(), got.Version)
}

func TestShowStatus_RawShape(t *testing.T) {
	srv, _, _ := newTestServer(t, true)
	rec := testutil.Do(srv.ServeMux(), http.MethodGet, "/api/status")
	got := testutil.DecodeJSON[map[string]interface{}](t, rec)

	st, ok := got["status"].(map[string]interface{})
	require.True(t, ok, "status object present: %v", got)
	assert.Equal(t, "A", st["preferred_street"])
	assert.Equal(t, float64(0), st["street_a_count"])
	assert.Equal(t, float64(0), st["street_b_count"])
	assert.Contains(t, got, "run_id")
	assert.Contains(t, got, "frames_processed")
}

func TestShowStats(t *testing.T) {
	srv, ctrl, _ := newTestServer(t, true)
	for i := 0; i < 4; i++ {
		ctrl.ProcessFrame(context.Background(), nil)
	}
	rec := testutil.Do(srv.ServeMux(), http.MethodGet, "/api/stats")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	got := testutil.DecodeJSON[monitoring.CountSummary](t, rec)
	assert.Equal(t, 4, got.Frames)
	assert.Zero(t, got.MeanA)
}

func TestHealthz(t *testing.T) {
	srv, ctrl, _ := newTestServer(t, false)
	mux := srv.ServeMux()

	rec := testutil.Do(mux, http.MethodGet, "/healthz")
	testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)

	ctrl.Start(context.Background())
	rec = testutil.Do(mux, http.MethodGet, "/healthz")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "ok", testutil.DecodeJSON[map[string]interface{}](t, rec)["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, true)
	for _, path := range []string{"/api/status", "/api/stats", "/healthz"} {
		rec := testutil.Do(srv.ServeMux(), http.MethodPost, path)
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
		assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
	}
}

func TestMetrics(t *testing.T) {
	srv, ctrl, _ := newTestServer(t, true)
	ctrl.ProcessFrame(context.Background(), nil)

	rec := testutil.Do(srv.ServeMux(), http.MethodGet, "/metrics")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	assert.Contains(t, body, "intersection_frames_processed_total 1")
	assert.Contains(t, body, "intersection_status_writes_total 1")
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	defer monitoring.SetLogger(nil)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := testutil.Do(h, http.MethodGet, "/brew")
	testutil.AssertStatusCode(t, rec.Code, http.StatusTeapot)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "[%s]"))
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"503"+colorReset, statusCodeColor(503))
	assert.Equal(t, "101", statusCodeColor(101))
}
