// Package detection describes the per-frame object detections handed over by
// the inference pipeline and filters them down to tracked vehicles.
package detection

import (
	"github.com/banshee-data/intersection/internal/zone"
)

// BBox is a bounding box in normalised [0,1] frame coordinates.
type BBox struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (b BBox) Center() zone.Point {
	return zone.Point{
		X: b.XMin + b.Width/2,
		Y: b.YMin + b.Height/2,
	}
}

// Detection is a single object found in a frame. It lives for one frame only.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Frame is one inference result as delivered by the feed.
type Frame struct {
	Seq        uint64      `json:"frame"`
	Detections []Detection `json:"detections"`
}

// DefaultLabels are the vehicle classes counted by default.
var DefaultLabels = []string{"car", "bus", "truck"}

// DefaultConfidenceThreshold is the score a detection must exceed.
const DefaultConfidenceThreshold = 0.4

// Filter keeps only tracked vehicle detections above the confidence threshold.
type Filter struct {
	labels    map[string]struct{}
	threshold float64
}

// NewFilter builds a Filter for the given labels and threshold.
func NewFilter(labels []string, threshold float64) *Filter {
	f := &Filter{
		labels:    make(map[string]struct{}, len(labels)),
		threshold: threshold,
	}
	for _, l := range labels {
		f.labels[l] = struct{}{}
	}
	return f
}

// Accept reports whether d should be classified. The confidence comparison is
// strict: a detection scoring exactly the threshold is dropped.
func (f *Filter) Accept(d Detection) bool {
	if d.Confidence <= f.threshold {
		return false
	}
	_, ok := f.labels[d.Label]
	return ok
}

// Centres returns the centre points of accepted detections together with the
// number that were rejected.
func (f *Filter) Centres(ds []Detection) (centres []zone.Point, rejected int) {
	centres = make([]zone.Point, 0, len(ds))
	for _, d := range ds {
		if !f.Accept(d) {
			rejected++
			continue
		}
		centres = append(centres, d.BBox.Center())
	}
	return centres, rejected
}
