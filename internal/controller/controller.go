package controller

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/intersection/internal/detection"
	"github.com/banshee-data/intersection/internal/lights"
	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/status"
	"github.com/banshee-data/intersection/internal/timeutil"
	"github.com/banshee-data/intersection/internal/zone"
)

// DefaultWriteTimeout bounds a single status write.
const DefaultWriteTimeout = 500 * time.Millisecond

// Options configures a Controller. Zero values fall back to the defaults
// (car/bus/truck above 0.4, the four reference zones, street A, threshold 5).
type Options struct {
	Filter       *detection.Filter
	Classifier   *zone.Classifier
	Initial      zone.Street
	Threshold    int
	Sink         status.Sink
	Lights       lights.Lights
	Metrics      *monitoring.Metrics
	Stats        *monitoring.CountStats
	WriteTimeout time.Duration
	// LogEvery logs the per-frame counts on every n-th frame. Values below 2
	// log every frame.
	LogEvery int
	Clock    timeutil.Clock
}

// Snapshot is the read-side view of the controller served by the API.
type Snapshot struct {
	Status           status.Record   `json:"status"`
	State            State           `json:"state"`
	Threshold        int             `json:"threshold"`
	FramesProcessed  uint64          `json:"frames_processed"`
	LastFrame        zone.FrameCount `json:"last_frame"`
	Transitions      uint64          `json:"transitions"`
	LastTransitionAt time.Time       `json:"last_transition_at,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
}

// Controller runs detections through the filter, the zone classifier and the
// debounce engine, and on a switch drives the lights and writes the status
// record. ProcessFrame must be called from a single goroutine; Snapshot may be
// called from anywhere.
type Controller struct {
	filter       *detection.Filter
	classifier   *zone.Classifier
	engine       *Engine
	sink         status.Sink
	lights       lights.Lights
	metrics      *monitoring.Metrics
	stats        *monitoring.CountStats
	writeTimeout time.Duration
	frameLog     monitoring.Sampler
	clock        timeutil.Clock

	mu   sync.RWMutex
	snap Snapshot
}

// New builds a Controller. Nothing is written or actuated until Start.
func New(opts Options) *Controller {
	c := &Controller{
		filter:       opts.Filter,
		classifier:   opts.Classifier,
		engine:       NewEngine(opts.Initial, opts.Threshold),
		sink:         opts.Sink,
		lights:       opts.Lights,
		metrics:      opts.Metrics,
		stats:        opts.Stats,
		writeTimeout: opts.WriteTimeout,
		frameLog:     monitoring.Sampler{Every: opts.LogEvery},
		clock:        opts.Clock,
	}
	if c.filter == nil {
		c.filter = detection.NewFilter(detection.DefaultLabels, detection.DefaultConfidenceThreshold)
	}
	if c.classifier == nil {
		c.classifier = zone.NewClassifier(zone.DefaultZones())
	}
	if c.sink == nil {
		c.sink = status.SinkFunc(func(context.Context, status.Record) error { return nil })
	}
	if c.lights == nil {
		c.lights = lights.NewDisabled()
	}
	if c.metrics == nil {
		c.metrics = monitoring.NewMetrics()
	}
	if c.stats == nil {
		c.stats = monitoring.NewCountStats(0)
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
	if c.clock == nil {
		c.clock = timeutil.RealClock{}
	}
	c.snap = Snapshot{
		Status:    status.NewRecord(opts.Initial, zone.FrameCount{}),
		State:     c.engine.State(),
		Threshold: c.engine.Threshold(),
	}
	return c
}

// Start shows the initial street on the lights and writes the initial
// record with zero counts. Failures are logged and counted; the controller
// is usable either way.
func (c *Controller) Start(ctx context.Context) {
	preferred := c.engine.State().Preferred
	c.metrics.PreferredStreet.Store(int64(preferred))
	monitoring.Logf("initialising lights: %s", lights.LevelsFor(preferred).Describe())
	c.show(ctx, preferred)

	rec := status.NewRecord(preferred, zone.FrameCount{})
	c.write(ctx, rec)

	c.mu.Lock()
	c.snap.Status = rec
	c.snap.StartedAt = c.clock.Now()
	c.mu.Unlock()
}

// ProcessFrame handles one frame's detections and reports whether the
// preferred street changed.
func (c *Controller) ProcessFrame(ctx context.Context, ds []detection.Detection) (Transition, bool) {
	centres, rejected := c.filter.Centres(ds)
	fc := c.classifier.Count(centres)

	c.metrics.FramesProcessed.Add(1)
	c.metrics.DetectionsAccepted.Add(uint64(len(centres)))
	c.metrics.DetectionsRejected.Add(uint64(rejected))
	c.metrics.StreetACount.Store(int64(fc.A))
	c.metrics.StreetBCount.Store(int64(fc.B))
	c.stats.Observe(fc.A, fc.B)

	if c.frameLog.Allow() {
		monitoring.Logf("%s", fc)
	}

	tr, switched := c.engine.Step(fc)
	if switched {
		monitoring.Logf("switching: street %s green, street %s red (%s)", tr.To, tr.To.Other(), fc)
		c.metrics.Transitions.Add(1)
		c.metrics.PreferredStreet.Store(int64(tr.To))
		c.show(ctx, tr.To)
		c.write(ctx, status.NewRecord(tr.To, tr.Counts))
	}

	c.mu.Lock()
	c.snap.State = c.engine.State()
	c.snap.FramesProcessed++
	c.snap.LastFrame = fc
	if switched {
		c.snap.Status = status.NewRecord(tr.To, tr.Counts)
		c.snap.Transitions++
		c.snap.LastTransitionAt = c.clock.Now()
	}
	c.mu.Unlock()

	return tr, switched
}

// HandleFrame processes a decoded feed frame.
func (c *Controller) HandleFrame(ctx context.Context, f detection.Frame) (Transition, bool) {
	return c.ProcessFrame(ctx, f.Detections)
}

// HandlePayload decodes a raw feed payload and processes it. A payload that
// cannot be decoded is logged and treated as a frame without detections, so
// the debounce counters reset as for an empty frame.
func (c *Controller) HandlePayload(ctx context.Context, payload []byte) {
	f, err := detection.Decode(payload)
	if err != nil {
		c.metrics.FramesUndecodable.Add(1)
		monitoring.Logf("discarding undecodable frame: %v", err)
		f = detection.Frame{}
	}
	c.HandleFrame(ctx, f)
}

// Snapshot returns the current read-side view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Stats returns the rolling count summary.
func (c *Controller) Stats() monitoring.CountSummary {
	return c.stats.Summary()
}

func (c *Controller) show(ctx context.Context, preferred zone.Street) {
	if err := c.lights.Show(ctx, preferred); err != nil {
		c.metrics.LightErrors.Add(1)
		monitoring.Logf("failed to set lights: %v", err)
	}
}

func (c *Controller) write(ctx context.Context, rec status.Record) {
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := c.sink.Write(wctx, rec); err != nil {
		c.metrics.StatusWriteErrors.Add(1)
		monitoring.Logf("failed to write status %s: %v", rec, err)
		return
	}
	c.metrics.StatusWrites.Add(1)
}
