package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/intersection/internal/monitoring"
)

// maxDatagram is the largest frame payload accepted over UDP.
const maxDatagram = 64 * 1024

// UDPSource receives one JSON frame per datagram.
type UDPSource struct {
	conn *net.UDPConn
}

// ListenUDP binds addr (host:port; port 0 picks a free port).
func ListenUDP(addr string) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	return &UDPSource{conn: conn}, nil
}

// LocalAddr returns the bound address.
func (u *UDPSource) LocalAddr() net.Addr { return u.conn.LocalAddr() }

func (u *UDPSource) String() string { return "udp " + u.conn.LocalAddr().String() }

// Run reads datagrams until ctx is done, then closes the socket.
func (u *UDPSource) Run(ctx context.Context, handle Handler) error {
	defer u.conn.Close()
	monitoring.Logf("UDP feed listening on %s", u.conn.LocalAddr())

	buf := make([]byte, maxDatagram)
	var deadlineErrLogged bool
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// short deadlines let the loop notice cancellation
		if err := u.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil && !deadlineErrLogged {
			monitoring.Logf("failed to set read deadline: %v", err)
			deadlineErrLogged = true
		}
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			monitoring.Logf("UDP read error: %v", err)
			continue
		}
		handle(ctx, buf[:n])
	}
}
