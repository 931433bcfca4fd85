package domain

import (
	"fmt"
	"time"
)

// ProbeStatus is the outcome of one endpoint in one refresh cycle.
type ProbeStatus int

const (
	// StatusMeasured means at least one probe succeeded and the failure budget held.
	StatusMeasured ProbeStatus = iota
	// StatusSkipped means the endpoint failed too often or never answered.
	StatusSkipped
	// StatusExcluded means the endpoint is on the exclusion list and was never probed.
	StatusExcluded
)

func (s ProbeStatus) String() string {
	switch s {
	case StatusMeasured:
		return "measured"
	case StatusSkipped:
		return "skipped"
	case StatusExcluded:
		return "excluded"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText lets statuses render as words in JSON payloads.
func (s ProbeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *ProbeStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "measured":
		*s = StatusMeasured
	case "skipped":
		*s = StatusSkipped
	case "excluded":
		*s = StatusExcluded
	default:
		return fmt.Errorf("unknown probe status %q", string(b))
	}
	return nil
}

// ProbeResult is one endpoint's outcome for a single refresh cycle.
//
// MeanLatency is expressed in seconds and is only meaningful when Status is StatusMeasured.
type ProbeResult struct {
	Endpoint    Endpoint    `json:"endpoint"`
	MeanLatency float64     `json:"mean_latency"`
	Status      ProbeStatus `json:"status"`
	Successes   int         `json:"successes"`
	Failures    int         `json:"failures"`
}

// Measured reports whether the result can enter a ranking.
func (r ProbeResult) Measured() bool { return r.Status == StatusMeasured }

// ProbeParams controls a probing run.
type ProbeParams struct {
	Count       int           // probes per endpoint
	MaxFailures int           // abort once failures exceed this many (not reset by successes)
	Timeout     time.Duration // bound on a single probe
}

// DefaultProbeParams mirrors the historical defaults: 10 probes, 1 tolerated failure, 200ms.
var DefaultProbeParams = ProbeParams{
	Count:       10,
	MaxFailures: 1,
	Timeout:     200 * time.Millisecond,
}

// Upper bounds on ProbeParams. Parameters can come from query strings, so a
// single cycle must stay bounded in memory and duration.
const (
	MaxProbeCount   = 100
	MaxProbeTimeout = 10 * time.Second
)

// Validate checks the parameters are usable.
func (p ProbeParams) Validate() error {
	if p.Count <= 0 || p.Count > MaxProbeCount {
		return fmt.Errorf("probe count must be in [1, %d], got %d", MaxProbeCount, p.Count)
	}
	if p.MaxFailures < 0 {
		return fmt.Errorf("max failures must be >= 0, got %d", p.MaxFailures)
	}
	if p.Timeout <= 0 || p.Timeout > MaxProbeTimeout {
		return fmt.Errorf("probe timeout must be in (0, %v], got %v", MaxProbeTimeout, p.Timeout)
	}
	return nil
}
