package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/timeutil"
)

// PCAPSource replays UDP frame datagrams from a capture file. It uses the
// pure Go reader so no libpcap is needed on the controller.
type PCAPSource struct {
	Path string
	// Port keeps only datagrams whose destination port matches; 0 keeps all.
	Port int
	// Realtime sleeps between packets for the gap recorded in the capture.
	Realtime bool
	Clock    timeutil.Clock
}

func (p *PCAPSource) String() string { return "pcap " + p.Path }

func (p *PCAPSource) Run(ctx context.Context, handle Handler) error {
	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", p.Path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read PCAP header of %s: %w", p.Path, err)
	}
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var (
		packets, frames int
		last            time.Time
	)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			monitoring.Logf("PCAP replay complete: %d packets, %d frames", packets, frames)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read packet %d: %w", packets+1, err)
		}
		packets++

		packet := gopacket.NewPacket(data, r.LinkType(), gopacket.Default)
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if p.Port != 0 && int(udp.DstPort) != p.Port {
			continue
		}

		if p.Realtime && !last.IsZero() {
			if gap := ci.Timestamp.Sub(last); gap > 0 {
				clock.Sleep(gap)
			}
		}
		last = ci.Timestamp

		frames++
		handle(ctx, udp.Payload)
	}
}
