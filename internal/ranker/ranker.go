package ranker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/metrics"
)

// EndpointProber is the part of probe.Prober the ranker needs.
type EndpointProber interface {
	Probe(ctx context.Context, ep domain.Endpoint, params domain.ProbeParams) domain.ProbeResult
}

// Ranker fans a prober out over every candidate and orders the measured ones.
type Ranker struct {
	prober   EndpointProber
	excluded domain.ExclusionList
	pool     *ants.Pool
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// New creates a ranker. workers <= 0 means one goroutine per candidate with no upper bound.
func New(
	prober EndpointProber,
	excluded domain.ExclusionList,
	workers int,
	log logger.Logger,
	m *metrics.Metrics,
) (*Ranker, error) {
	if workers <= 0 {
		workers = -1 // ants: unlimited
	}
	pool, err := ants.NewPool(workers,
		ants.WithPanicHandler(func(p interface{}) {
			log.Error("probe worker panicked", logger.String("panic", fmt.Sprint(p)))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe pool: %w", err)
	}

	return &Ranker{
		prober:   prober,
		excluded: excluded,
		pool:     pool,
		logger:   log,
		metrics:  m,
	}, nil
}

// Close releases the worker pool.
func (r *Ranker) Close() {
	r.pool.Release()
}

// Rank probes every candidate concurrently and returns the ranking plus every
// per-endpoint result (in candidate order, duplicates removed).
//
// It waits for all probes before returning. The ranking depends only on the
// measured latencies, never on completion order.
func (r *Ranker) Rank(ctx context.Context, candidates []domain.Endpoint, params domain.ProbeParams) (domain.Ranking, []domain.ProbeResult) {
	start := time.Now()
	unique := dedupe(candidates)
	results := make([]domain.ProbeResult, len(unique))

	var wg sync.WaitGroup
	for i, ep := range unique {
		if r.excluded.Contains(ep) {
			results[i] = domain.ProbeResult{Endpoint: ep, Status: domain.StatusExcluded}
			r.logger.Debug("endpoint excluded, not probing", logger.String("endpoint", ep.Host()))
			continue
		}

		wg.Add(1)
		slot := &results[i]
		target := ep
		err := r.pool.Submit(func() {
			defer wg.Done()
			// Pre-fill so a panicking probe still leaves a Skipped result behind.
			*slot = domain.ProbeResult{Endpoint: target, Status: domain.StatusSkipped}
			*slot = r.prober.Probe(ctx, target, params)
		})
		if err != nil {
			wg.Done()
			results[i] = domain.ProbeResult{Endpoint: ep, Status: domain.StatusSkipped}
			r.logger.Error("failed to dispatch probe",
				logger.String("endpoint", ep.Host()),
				logger.Error(err))
		}
	}
	wg.Wait()

	counts := map[domain.ProbeStatus]int{}
	for _, res := range results {
		counts[res.Status]++
		r.metrics.ObserveProbe(res.Status)
	}

	ranking := domain.BuildRanking(results)

	r.logger.Info("ranking completed",
		logger.Int("candidates", len(unique)),
		logger.Int("measured", counts[domain.StatusMeasured]),
		logger.Int("skipped", counts[domain.StatusSkipped]),
		logger.Int("excluded", counts[domain.StatusExcluded]),
		logger.Duration("took", time.Since(start)))

	return ranking, results
}

func dedupe(candidates []domain.Endpoint) []domain.Endpoint {
	seen := make(map[domain.Endpoint]struct{}, len(candidates))
	out := make([]domain.Endpoint, 0, len(candidates))
	for _, ep := range candidates {
		if ep == "" {
			continue
		}
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}
