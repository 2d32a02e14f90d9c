//go:build linux

package lights

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkch/gpio"

	"github.com/banshee-data/intersection/internal/zone"
)

const consumer = "intersection"

// GPIO drives four output lines on a GPIO character device.
type GPIO struct {
	mu     sync.Mutex
	lines  [4]*gpio.Line
	closed bool
}

// OpenGPIO requests the four lines as outputs. Lines start low until the
// first Show.
func OpenGPIO(chipPath string, pins Pins) (*GPIO, error) {
	chip, err := gpio.OpenChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open gpio chip %s: %w", chipPath, err)
	}
	defer chip.Close()

	g := &GPIO{}
	for _, o := range Outputs {
		line, err := chip.OpenLine(pins.For(o), 0, gpio.Output, consumer)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to open line %d for %s: %w", pins.For(o), o, err)
		}
		g.lines[o] = line
	}
	return g, nil
}

func (g *GPIO) Show(_ context.Context, preferred zone.Street) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	return apply(LevelsFor(preferred), func(o Output, on bool) error {
		var v byte
		if on {
			v = 1
		}
		return g.lines[o].SetValue(v)
	})
}

// Close releases the lines. The kernel keeps their last driven value.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	var firstErr error
	for i, l := range g.lines {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		g.lines[i] = nil
	}
	return firstErr
}
