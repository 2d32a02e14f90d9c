package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/intersection/internal/serialmux"
)

// SerialSource reads one JSON frame per line from a serial link.
type SerialSource struct {
	mux serialmux.SerialMuxInterface
}

func NewSerialSource(mux serialmux.SerialMuxInterface) *SerialSource {
	return &SerialSource{mux: mux}
}

// Mux exposes the underlying multiplexer, e.g. to attach admin routes.
func (s *SerialSource) Mux() serialmux.SerialMuxInterface { return s.mux }

func (s *SerialSource) String() string { return "serial" }

// Run subscribes reliably so no frame is skipped, then monitors the port.
// Blank lines are ignored.
func (s *SerialSource) Run(ctx context.Context, handle Handler) error {
	id, lines := s.mux.SubscribeReliable()
	defer s.mux.Unsubscribe(id)

	monitorErr := make(chan error, 1)
	go func() {
		monitorErr <- s.mux.Monitor(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-monitorErr:
			if err != nil {
				return fmt.Errorf("serial feed: %w", err)
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			handle(ctx, []byte(line))
		}
	}
}
