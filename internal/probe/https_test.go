package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTLSMirror(t *testing.T) (host string, port int, pool *x509.CertPool) {
	t.Helper()
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		http.Redirect(w, r, "/feed/popular", http.StatusFound)
	}))
	t.Cleanup(ts.Close)

	addr := ts.Listener.Addr().(*net.TCPAddr)
	pool = x509.NewCertPool()
	pool.AddCert(ts.Certificate())
	return "127.0.0.1", addr.Port, pool
}

func TestHTTPSPinger_TrustedCert(t *testing.T) {
	host, port, pool := newTLSMirror(t)

	pinger := NewHTTPSPinger(port)
	pinger.TLSConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}

	rtt, err := pinger.Ping(context.Background(), host, 2*time.Second)
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if rtt <= 0 {
		t.Errorf("Ping() rtt = %v, want > 0", rtt)
	}
}

// A self-signed certificate must count as a failed probe.
func TestHTTPSPinger_UntrustedCert(t *testing.T) {
	host, port, _ := newTLSMirror(t)

	if _, err := NewHTTPSPinger(port).Ping(context.Background(), host, 2*time.Second); err == nil {
		t.Error("Ping() with self-signed cert should return error")
	}
}

func TestHTTPSPinger_InvalidHost(t *testing.T) {
	if _, err := NewHTTPSPinger(0).Ping(context.Background(), "not-a-valid-hostname-12345.invalid", time.Second); err == nil {
		t.Error("Ping() with invalid hostname should return error")
	}
}

func TestNewPinger(t *testing.T) {
	tests := []struct {
		mode    string
		wantErr bool
	}{
		{mode: ""},
		{mode: "tcp"},
		{mode: "https"},
		{mode: "icmp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			p, err := NewPinger(tt.mode, 0)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPinger(%q) should fail", tt.mode)
				}
				return
			}
			if err != nil || p == nil {
				t.Errorf("NewPinger(%q) = %v, %v", tt.mode, p, err)
			}
		})
	}
}
