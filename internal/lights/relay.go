package lights

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/intersection/internal/serialmux"
	"github.com/banshee-data/intersection/internal/zone"
)

// RelayBaudRate is the line speed of LCUS-style USB relay boards.
const RelayBaudRate = 9600

// DefaultRelayChannels wires A-green, A-red, B-green and B-red to relay
// channels 1 to 4.
var DefaultRelayChannels = Pins{AGreen: 1, ARed: 2, BGreen: 3, BRed: 4}

// Relay drives a USB serial relay board. Each channel switch is a four byte
// frame: 0xA0, channel, state, checksum (sum of the first three bytes).
type Relay struct {
	mu       sync.Mutex
	port     serialmux.SerialPorter
	channels Pins
	closed   bool
}

// OpenRelay opens the relay board's serial port.
func OpenRelay(path string, channels Pins) (*Relay, error) {
	port, err := serialmux.Open(path, serialmux.PortOptions{BaudRate: RelayBaudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open relay board %s: %w", path, err)
	}
	return NewRelay(port, channels), nil
}

// NewRelay wraps an already open port.
func NewRelay(port serialmux.SerialPorter, channels Pins) *Relay {
	return &Relay{port: port, channels: channels}
}

func relayFrame(channel uint32, on bool) []byte {
	var state byte
	if on {
		state = 1
	}
	ch := byte(channel)
	return []byte{0xA0, ch, state, 0xA0 + ch + state}
}

func (r *Relay) Show(_ context.Context, preferred zone.Street) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return apply(LevelsFor(preferred), func(o Output, on bool) error {
		frame := relayFrame(r.channels.For(o), on)
		n, err := r.port.Write(frame)
		if err != nil {
			return err
		}
		if n != len(frame) {
			return serialmux.ErrWriteFailed
		}
		return nil
	})
}

// Close closes the port. Relays hold their state when the port goes away.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.port.Close()
}
