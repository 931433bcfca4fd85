package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
)

const (
	// DefaultSnapshotTTL bounds how long a snapshot survives without a refresh (48 hours)
	DefaultSnapshotTTL = 48 * time.Hour
)

// Store mirrors published snapshots into Redis so other consumers (reports,
// a restarted process) can read the last ranking.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultSnapshotTTL,
	}
}

// SaveSnapshot replaces the stored snapshot and latency set in one MULTI/EXEC.
func (s *Store) SaveSnapshot(ctx context.Context, snap index.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SnapshotKey(), string(data), s.ttl)
	pipe.Del(ctx, LatencyKey())
	if members := latencyMembers(snap.Ranking); len(members) > 0 {
		pipe.ZAdd(ctx, LatencyKey(), members...)
		pipe.Expire(ctx, LatencyKey(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads the stored snapshot. found is false when none exists.
func (s *Store) GetSnapshot(ctx context.Context) (snap index.Snapshot, found bool, err error) {
	data, err := s.client.Get(ctx, SnapshotKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return index.Snapshot{}, false, nil
		}
		return index.Snapshot{}, false, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return index.Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// TopOrigins returns up to n origins from the latency set, best first.
func (s *Store) TopOrigins(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	origins, err := s.client.ZRange(ctx, LatencyKey(), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read latency set: %w", err)
	}
	return origins, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func latencyMembers(ranking domain.Ranking) []redis.Z {
	members := make([]redis.Z, 0, len(ranking))
	for _, e := range ranking {
		members = append(members, redis.Z{Score: e.Latency, Member: e.Endpoint.Origin()})
	}
	return members
}
