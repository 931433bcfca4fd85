package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

// Snapshot is one complete, immutable refresh outcome.
// Callers must treat Ranking and Results as read-only.
type Snapshot struct {
	Ranking   domain.Ranking       `json:"ranking"`
	Results   []domain.ProbeResult `json:"results,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// RankingIndex holds the most recently published snapshot in memory.
// A single writer (the refresher) swaps whole snapshots; any number of readers
// see either the previous or the new snapshot, never a mix.
type RankingIndex struct {
	mu      sync.RWMutex
	current *Snapshot // nil until the first publish (warming up)
	now     func() time.Time
}

// NewRankingIndex creates an empty (warming up) index.
func NewRankingIndex() *RankingIndex {
	return &RankingIndex{now: time.Now}
}

// Publish replaces the stored snapshot. The inputs are copied.
func (idx *RankingIndex) Publish(ranking domain.Ranking, results []domain.ProbeResult) Snapshot {
	snap := &Snapshot{
		Ranking:   ranking.Clone(),
		Results:   append([]domain.ProbeResult(nil), results...),
		UpdatedAt: idx.now(),
	}
	idx.Restore(snap)
	return *snap
}

// Restore installs a snapshot as-is, keeping its UpdatedAt. Used for warm starts.
func (idx *RankingIndex) Restore(snap *Snapshot) {
	if snap.Ranking == nil {
		snap.Ranking = domain.Ranking{}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.current = snap
}

// Read returns the current snapshot, or false while warming up.
func (idx *RankingIndex) Read() (Snapshot, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.current == nil {
		return Snapshot{}, false
	}
	return *idx.current, true
}

// Warm reports whether at least one snapshot was published.
func (idx *RankingIndex) Warm() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.current != nil
}

// Count returns the number of ranked endpoints (0 while warming up).
func (idx *RankingIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.current == nil {
		return 0
	}
	return len(idx.current.Ranking)
}

// GetLastReload returns the time of the last publish (zero while warming up).
func (idx *RankingIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.current == nil {
		return time.Time{}
	}
	return idx.current.UpdatedAt
}
