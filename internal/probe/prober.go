package probe

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
)

const maxPreallocSamples = 64

// Prober measures the latency of one endpoint with repeated pings.
type Prober struct {
	pinger Pinger
	logger logger.Logger
}

// NewProber creates a prober on top of the given pinger.
func NewProber(p Pinger, log logger.Logger) *Prober {
	return &Prober{pinger: p, logger: log}
}

// Probe runs up to params.Count sequential pings against ep.
//
// Failures are tallied over the whole run and never reset by a later success.
// As soon as the tally exceeds params.MaxFailures the endpoint is Skipped without
// a partial mean. A run with no success at all is Skipped as well.
func (p *Prober) Probe(ctx context.Context, ep domain.Endpoint, params domain.ProbeParams) domain.ProbeResult {
	res := domain.ProbeResult{Endpoint: ep, Status: domain.StatusSkipped}
	samples := make([]float64, 0, min(params.Count, maxPreallocSamples))

	for i := 0; i < params.Count; i++ {
		if ctx.Err() != nil {
			p.logger.Debug("probe cancelled",
				logger.String("endpoint", ep.Host()),
				logger.Int("attempt", i+1))
			res.Successes = len(samples)
			return res
		}

		rtt, err := p.pinger.Ping(ctx, ep.Host(), params.Timeout)
		if err != nil {
			res.Failures++
			if res.Failures > params.MaxFailures {
				p.logger.Warn("endpoint is taking too long to respond, skipping",
					logger.String("endpoint", ep.Host()),
					logger.Int("failures", res.Failures),
					logger.Int("attempt", i+1),
					logger.Error(err))
				res.Successes = len(samples)
				return res
			}
			continue
		}
		if rtt < 0 {
			rtt = 0
		}
		samples = append(samples, rtt.Seconds())
	}

	res.Successes = len(samples)
	if len(samples) == 0 {
		p.logger.Warn("endpoint never answered, skipping",
			logger.String("endpoint", ep.Host()),
			logger.Int("failures", res.Failures))
		return res
	}

	res.MeanLatency = stat.Mean(samples, nil)
	res.Status = domain.StatusMeasured
	return res
}
