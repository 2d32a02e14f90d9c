//go:build !linux

package lights

import (
	"context"
	"errors"

	"github.com/banshee-data/intersection/internal/zone"
)

// GPIO is unavailable off Linux.
type GPIO struct{}

// OpenGPIO always fails off Linux.
func OpenGPIO(string, Pins) (*GPIO, error) {
	return nil, errors.New("gpio lights are only supported on linux")
}

func (*GPIO) Show(context.Context, zone.Street) error { return ErrClosed }
func (*GPIO) Close() error                            { return nil }
