package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/metrics"
	"github.com/MrSnakeDoc/bestmirror/internal/report"
)

// Source produces the candidate endpoints for a refresh cycle.
type Source interface {
	Candidates(ctx context.Context) ([]domain.Endpoint, error)
	Name() string
}

// Ranker probes candidates and orders the measured ones.
type Ranker interface {
	Rank(ctx context.Context, candidates []domain.Endpoint, params domain.ProbeParams) (domain.Ranking, []domain.ProbeResult)
}

// SnapshotSaver mirrors published snapshots somewhere durable (Redis).
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snap index.Snapshot) error
}

// Artifacts lists the files rewritten after every publish. Empty paths are skipped.
type Artifacts struct {
	CacheFile  string // JSON ranking
	ReportFile string // markdown report
}

// RankingRefresher periodically re-ranks the candidate endpoints and publishes
// the result into the index.
type RankingRefresher struct {
	source    Source
	ranker    Ranker
	index     *index.RankingIndex
	store     SnapshotSaver
	metrics   *metrics.Metrics
	logger    logger.Logger
	interval  time.Duration
	params    domain.ProbeParams
	artifacts Artifacts

	mu            sync.Mutex // serializes cycles
	wg            sync.WaitGroup
	stopOnce      sync.Once
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
}

// NewRankingRefresher creates a refresher. store and m may be nil.
func NewRankingRefresher(
	source Source,
	rk Ranker,
	idx *index.RankingIndex,
	store SnapshotSaver,
	m *metrics.Metrics,
	log logger.Logger,
	interval time.Duration,
	params domain.ProbeParams,
	artifacts Artifacts,
	manualTrigger <-chan struct{},
) *RankingRefresher {
	return &RankingRefresher{
		source:        source,
		ranker:        rk,
		index:         idx,
		store:         store,
		metrics:       m,
		logger:        log,
		interval:      interval,
		params:        params,
		artifacts:     artifacts,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs the first cycle immediately and then one every interval, in the
// background. It returns at once so the server can answer "warming up" meanwhile.
func (rr *RankingRefresher) Start(ctx context.Context) {
	rr.wg.Add(1)
	go func() {
		defer rr.wg.Done()

		if _, err := rr.Refresh(ctx); err != nil {
			rr.logger.Error("initial refresh failed", logger.Error(err))
		}

		ticker := time.NewTicker(rr.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := rr.Refresh(ctx); err != nil {
					rr.logger.Error("failed to refresh ranking", logger.Error(err))
				}
			case <-rr.manualTrigger:
				rr.logger.Info("manual refresh triggered")
				if _, err := rr.Refresh(ctx); err != nil {
					rr.logger.Error("failed to refresh ranking", logger.Error(err))
				}
			case <-rr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the loop and waits for an in-flight cycle to finish.
func (rr *RankingRefresher) Stop() {
	rr.stopOnce.Do(func() { close(rr.stopCh) })
	rr.wg.Wait()
}

// Params returns the default probe parameters used by periodic cycles.
func (rr *RankingRefresher) Params() domain.ProbeParams {
	return rr.params
}

// Refresh runs one cycle with the default probe parameters.
func (rr *RankingRefresher) Refresh(ctx context.Context) (index.Snapshot, error) {
	return rr.RefreshWith(ctx, rr.params)
}

// RefreshWith runs one cycle with the given probe parameters and returns the
// published snapshot. On error nothing is published and the previous snapshot stays.
func (rr *RankingRefresher) RefreshWith(ctx context.Context, params domain.ProbeParams) (index.Snapshot, error) {
	if err := params.Validate(); err != nil {
		return index.Snapshot{}, err
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	start := time.Now()
	rr.logger.Info("refreshing ranking", logger.String("source", rr.source.Name()))

	candidates, err := rr.source.Candidates(ctx)
	if err != nil {
		rr.metrics.ObserveRefresh("source_error", time.Since(start))
		return index.Snapshot{}, fmt.Errorf("failed to fetch candidates from %s: %w", rr.source.Name(), err)
	}

	rr.logger.Info("fetched candidates", logger.Int("count", len(candidates)))

	ranking, results := rr.ranker.Rank(ctx, candidates, params)

	// A cancelled cycle reports every endpoint as skipped; keep the previous ranking instead.
	if err := ctx.Err(); err != nil {
		rr.metrics.ObserveRefresh("cancelled", time.Since(start))
		return index.Snapshot{}, fmt.Errorf("refresh cancelled: %w", err)
	}

	snap := rr.index.Publish(ranking, results)
	rr.metrics.ObservePublish(snap.Ranking, snap.UpdatedAt)
	rr.metrics.ObserveRefresh("ok", time.Since(start))

	rr.logger.Info("ranking published",
		logger.Int("ranked", len(snap.Ranking)),
		logger.Int("candidates", len(candidates)),
		logger.Duration("took", time.Since(start)))

	rr.persist(ctx, snap)

	return snap, nil
}

// persist writes the artifacts of a published snapshot. Failures are logged only.
func (rr *RankingRefresher) persist(ctx context.Context, snap index.Snapshot) {
	if path := rr.artifacts.CacheFile; path != "" {
		if err := report.WriteFile(path, report.JSON(snap.Ranking)); err != nil {
			rr.logger.Warn("failed to write cache file",
				logger.String("path", path),
				logger.Error(err))
		}
	}

	if path := rr.artifacts.ReportFile; path != "" {
		if err := report.WriteFile(path, []byte(report.Markdown(snap.Ranking))); err != nil {
			rr.logger.Warn("failed to write report file",
				logger.String("path", path),
				logger.Error(err))
		}
	}

	if rr.store != nil {
		if err := rr.store.SaveSnapshot(ctx, snap); err != nil {
			rr.logger.Warn("failed to save snapshot to redis", logger.Error(err))
			// Don't fail - memory index is the primary source
		} else {
			rr.logger.Debug("snapshot saved to redis")
		}
	}
}
