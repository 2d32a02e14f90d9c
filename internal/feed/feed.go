// Package feed delivers raw detection frames from the inference pipeline to
// the controller. Every source calls its handler sequentially from a single
// goroutine, in arrival order.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/intersection/internal/fsutil"
	"github.com/banshee-data/intersection/internal/serialmux"
	"github.com/banshee-data/intersection/internal/timeutil"
)

// Handler receives one frame payload. It must not retain payload after it
// returns.
type Handler func(ctx context.Context, payload []byte)

// Source produces frame payloads until ctx is done or the input ends. Run
// returns nil when a finite input (file, capture, closed port) is exhausted.
type Source interface {
	Run(ctx context.Context, handle Handler) error
	String() string
}

// Options tune the sources built by Parse.
type Options struct {
	Serial serialmux.PortOptions
	// PCAPPort keeps only datagrams sent to this UDP port; 0 keeps all.
	PCAPPort int
	// Realtime replays a capture with its original inter-packet gaps.
	Realtime bool
	// Interval is the delay between frames of a file replay.
	Interval time.Duration
	Clock    timeutil.Clock
	FS       fsutil.FileSystem
}

// Parse builds a source from a "kind:target" string: serial:/dev/ttyUSB0,
// udp::5600, pcap:capture.pcap or file:frames.jsonl.
func Parse(spec string, opts Options) (Source, error) {
	kind, target, ok := strings.Cut(spec, ":")
	if !ok || target == "" {
		return nil, fmt.Errorf("invalid feed %q: want kind:target", spec)
	}
	switch kind {
	case "serial":
		mux, err := serialmux.NewRealSerialMux(target, opts.Serial)
		if err != nil {
			return nil, err
		}
		return NewSerialSource(mux), nil
	case "udp":
		src, err := ListenUDP(target)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "pcap":
		return &PCAPSource{Path: target, Port: opts.PCAPPort, Realtime: opts.Realtime, Clock: opts.Clock}, nil
	case "file":
		return &FileSource{FS: opts.FS, Path: target, Interval: opts.Interval, Clock: opts.Clock}, nil
	default:
		return nil, fmt.Errorf("unknown feed kind %q (want serial, udp, pcap or file)", kind)
	}
}
