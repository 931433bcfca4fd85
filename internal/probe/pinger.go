package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the port TCP probes connect to. Mirrors are https-only.
const DefaultPort = 443

// Pinger performs a single round-trip measurement against a host.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)

func (f PingerFunc) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	return f(ctx, host, timeout)
}

// TCPPinger measures the time to complete a TCP handshake with host:Port.
//
// A connect round trip is used instead of ICMP echo because ICMP needs raw sockets
// (root or CAP_NET_RAW) while every mirror already accepts TCP on 443.
type TCPPinger struct {
	Port int
}

// NewTCPPinger returns a pinger for the given port (DefaultPort when <= 0).
func NewTCPPinger(port int) *TCPPinger {
	if port <= 0 {
		port = DefaultPort
	}
	return &TCPPinger{Port: port}
}

func (p *TCPPinger) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(p.Port))
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: -1}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", addr, err)
	}
	rtt := time.Since(start)
	_ = conn.Close()

	return rtt, nil
}
