package lights

import (
	"context"
	"sync"

	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/zone"
)

// Disabled is a no-op driver used when no signal hardware is attached
// (-lights=none). It only logs what it would have shown.
type Disabled struct{}

func NewDisabled() *Disabled { return &Disabled{} }

func (*Disabled) Show(_ context.Context, preferred zone.Street) error {
	monitoring.Logf("lights disabled: would show %s", LevelsFor(preferred).Describe())
	return nil
}

func (*Disabled) Close() error { return nil }

// Recorder remembers every street it was asked to show. It backs tests and
// dry runs.
type Recorder struct {
	mu     sync.Mutex
	shown  []zone.Street
	closed bool

	// Err, when set, is returned by Show after the call is recorded.
	Err error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Show(_ context.Context, preferred zone.Street) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.shown = append(r.shown, preferred)
	return r.Err
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Shown returns a copy of the streets shown so far.
func (r *Recorder) Shown() []zone.Street {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]zone.Street(nil), r.shown...)
}

// Current returns the last street shown and whether anything was shown.
func (r *Recorder) Current() (zone.Street, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.shown) == 0 {
		return 0, false
	}
	return r.shown[len(r.shown)-1], true
}
