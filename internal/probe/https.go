package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/utils"
)

// HTTPSPinger measures a full HEAD round trip over TLS, so a mirror with a broken
// certificate counts as a failed probe. It is slower than TCPPinger.
type HTTPSPinger struct {
	Port      int
	TLSConfig *tls.Config // nil => system roots, TLS 1.2 minimum
}

// NewHTTPSPinger returns an https pinger for the given port (DefaultPort when <= 0).
func NewHTTPSPinger(port int) *HTTPSPinger {
	if port <= 0 {
		port = DefaultPort
	}
	return &HTTPSPinger{Port: port}
}

func (p *HTTPSPinger) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsConfig := p.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	// One connection per probe: keep-alives would turn later probes into cache hits
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: -1,
			}).DialContext,
			TLSHandshakeTimeout: timeout,
			TLSClientConfig:     tlsConfig,
			DisableKeepAlives:   true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Don't follow redirects
			return http.ErrUseLastResponse
		},
	}

	url := "https://" + net.JoinHostPort(host, strconv.Itoa(p.Port)) + "/"
	if p.Port == DefaultPort {
		url = "https://" + host + "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", url, err)
	}
	rtt := time.Since(start)
	utils.DrainAndClose(resp.Body)

	// Any response means the mirror is reachable with valid TLS
	return rtt, nil
}

// NewPinger returns the pinger for a probe mode: "tcp" (default) or "https".
func NewPinger(mode string, port int) (Pinger, error) {
	switch mode {
	case "", "tcp":
		return NewTCPPinger(port), nil
	case "https":
		return NewHTTPSPinger(port), nil
	default:
		return nil, fmt.Errorf("unknown probe mode %q (want tcp or https)", mode)
	}
}
