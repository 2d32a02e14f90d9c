// Package lights drives the red/green signal outputs of both streets.
//
// Every driver maps a preferred street onto four outputs: green on for the
// preferred street and red on for the other, with the remaining two off.
// Drivers never reset outputs on Close; the lights keep showing the last
// commanded state when the controller exits.
package lights

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/intersection/internal/zone"
)

// ErrClosed is returned by Show after Close.
var ErrClosed = errors.New("lights: driver closed")

// Lights is an actuator for the two signal heads.
type Lights interface {
	// Show switches the outputs so preferred is green and the other street is red.
	Show(ctx context.Context, preferred zone.Street) error
	// Close releases the underlying device without changing the outputs.
	Close() error
}

// Output names one of the four signal outputs.
type Output int

const (
	AGreen Output = iota
	ARed
	BGreen
	BRed
)

func (o Output) String() string {
	switch o {
	case AGreen:
		return "A-green"
	case ARed:
		return "A-red"
	case BGreen:
		return "B-green"
	case BRed:
		return "B-red"
	default:
		return fmt.Sprintf("Output(%d)", int(o))
	}
}

// Outputs lists the four outputs in the order drivers set them.
var Outputs = [4]Output{AGreen, ARed, BGreen, BRed}

// Levels is the on/off level of every output, indexed by Output.
type Levels [4]bool

// LevelsFor returns the output levels that show preferred as green.
func LevelsFor(preferred zone.Street) Levels {
	a := preferred == zone.StreetA
	return Levels{
		AGreen: a,
		ARed:   !a,
		BGreen: !a,
		BRed:   a,
	}
}

// Describe renders the levels for logs, e.g. "Street A = GREEN, Street B = RED".
func (l Levels) Describe() string {
	colour := func(green, red bool) string {
		switch {
		case green && !red:
			return "GREEN"
		case red && !green:
			return "RED"
		default:
			return "INVALID"
		}
	}
	return fmt.Sprintf("Street A = %s, Street B = %s", colour(l[AGreen], l[ARed]), colour(l[BGreen], l[BRed]))
}

// apply sets each output through set, switching outputs off before switching
// any on so that both greens are never lit together.
func apply(levels Levels, set func(o Output, on bool) error) error {
	for _, pass := range []bool{false, true} {
		for _, o := range Outputs {
			if levels[o] != pass {
				continue
			}
			if err := set(o, pass); err != nil {
				return fmt.Errorf("failed to set %s: %w", o, err)
			}
		}
	}
	return nil
}

// Pins maps each output onto a GPIO line offset (BCM numbering on a Pi) or a
// relay channel.
type Pins struct {
	AGreen uint32 `json:"a_green"`
	ARed   uint32 `json:"a_red"`
	BGreen uint32 `json:"b_green"`
	BRed   uint32 `json:"b_red"`
}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "/dev/gpiochip0"

// DefaultPins is the wiring used by the reference build.
var DefaultPins = Pins{AGreen: 17, ARed: 18, BGreen: 22, BRed: 23}

// For returns the pin assigned to o.
func (p Pins) For(o Output) uint32 {
	switch o {
	case AGreen:
		return p.AGreen
	case ARed:
		return p.ARed
	case BGreen:
		return p.BGreen
	default:
		return p.BRed
	}
}
