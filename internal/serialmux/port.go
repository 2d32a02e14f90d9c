package serialmux

import (
	"io"

	"go.bug.st/serial"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortOpener opens a serial port. Tests replace Open with a fake.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)

// Open opens a real serial port with go.bug.st/serial.
var Open SerialPortOpener = func(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}

// NewRealSerialMux creates a SerialMux instance backed by a serial port at the
// given path using the provided serial options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	port, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux(port), nil
}
