// Package controller turns per-frame detections into traffic light decisions.
//
// Engine holds the debounce state machine. Controller wraps it with the
// detection filter, the zone classifier, the lights and the status sink and
// is driven one frame at a time, in arrival order, by a feed.
package controller

import (
	"fmt"

	"github.com/banshee-data/intersection/internal/zone"
)

// DefaultThreshold is the number of consecutive frames a street must be
// favoured before the lights switch to it.
const DefaultThreshold = 5

// State is the debounce state carried between frames. At most one of the two
// counters is positive.
type State struct {
	Preferred         zone.Street `json:"preferred_street"`
	FramesPreferringA int         `json:"frames_preferring_a"`
	FramesPreferringB int         `json:"frames_preferring_b"`
}

// Transition is emitted when the preferred street changes. Counts are the
// street totals of the frame that caused the switch.
type Transition struct {
	To     zone.Street
	Counts zone.FrameCount
}

func (t Transition) String() string {
	return fmt.Sprintf("switch to %s (%s)", t.To, t.Counts)
}

// Engine is the debounced decision procedure. It is not safe for concurrent
// use; the frame loop is its only caller.
type Engine struct {
	state     State
	threshold int
}

// NewEngine starts with initial preferred and both counters at zero. A
// threshold below 1 falls back to DefaultThreshold.
func NewEngine(initial zone.Street, threshold int) *Engine {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Engine{
		state:     State{Preferred: initial},
		threshold: threshold,
	}
}

// State returns a copy of the current state.
func (e *Engine) State() State { return e.state }

// Threshold returns the configured debounce threshold.
func (e *Engine) Threshold() int { return e.threshold }

// Step applies one frame's counts. A street is favoured on a frame when the
// other street has the larger count; a tie favours neither and clears both
// counters. The lights switch once the non-preferred street has been
// favoured for threshold consecutive frames.
func (e *Engine) Step(fc zone.FrameCount) (Transition, bool) {
	s := &e.state
	switch {
	case fc.A < fc.B:
		s.FramesPreferringA++
		s.FramesPreferringB = 0
	case fc.B < fc.A:
		s.FramesPreferringB++
		s.FramesPreferringA = 0
	default:
		s.FramesPreferringA = 0
		s.FramesPreferringB = 0
	}

	if s.Preferred == zone.StreetB && s.FramesPreferringA >= e.threshold {
		s.Preferred = zone.StreetA
		s.FramesPreferringA = 0
		return Transition{To: zone.StreetA, Counts: fc}, true
	}
	if s.Preferred == zone.StreetA && s.FramesPreferringB >= e.threshold {
		s.Preferred = zone.StreetB
		s.FramesPreferringB = 0
		return Transition{To: zone.StreetB, Counts: fc}, true
	}
	return Transition{}, false
}
