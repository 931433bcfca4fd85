package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/bestmirror/internal/index"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/metrics"
)

// SnapshotLoader reads the last mirrored snapshot.
type SnapshotLoader interface {
	GetSnapshot(ctx context.Context) (index.Snapshot, bool, error)
}

// SnapshotSyncer restores the last Redis snapshot into the index on startup
type SnapshotSyncer struct {
	store   SnapshotLoader
	index   *index.RankingIndex
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewSnapshotSyncer creates a new snapshot syncer
func NewSnapshotSyncer(
	store SnapshotLoader,
	idx *index.RankingIndex,
	m *metrics.Metrics,
	log logger.Logger,
) *SnapshotSyncer {
	return &SnapshotSyncer{
		store:   store,
		index:   idx,
		metrics: m,
		logger:  log,
	}
}

// Sync restores the stored snapshot unless the index is already warm.
func (ss *SnapshotSyncer) Sync(ctx context.Context) error {
	if ss.index.Warm() {
		return nil
	}

	ss.logger.Info("restoring ranking from redis")

	snap, found, err := ss.store.GetSnapshot(ctx)
	if err != nil {
		return err
	}

	if !found {
		ss.logger.Info("no snapshot found in redis")
		return nil
	}

	ss.index.Restore(&snap)
	ss.metrics.ObservePublish(snap.Ranking, snap.UpdatedAt)

	ss.logger.Info("restored ranking from redis",
		logger.Int("count", len(snap.Ranking)),
		logger.String("updated_at", snap.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")))

	return nil
}
