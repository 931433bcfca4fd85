package domain

import (
	"cmp"
	"slices"
)

// Entry is one ranked endpoint with its mean latency in seconds.
type Entry struct {
	Endpoint Endpoint `json:"endpoint"`
	Latency  float64  `json:"latency"`
}

// Ranking is ordered best (lowest latency) first and holds no duplicate endpoints.
// An empty Ranking is valid: every candidate was skipped or excluded.
type Ranking []Entry

// BuildRanking keeps the measured results, drops duplicate endpoints (first wins)
// and sorts them ascending by latency. Ties keep the order of results.
func BuildRanking(results []ProbeResult) Ranking {
	seen := make(map[Endpoint]struct{}, len(results))
	ranking := make(Ranking, 0, len(results))
	for _, r := range results {
		if !r.Measured() {
			continue
		}
		if _, dup := seen[r.Endpoint]; dup {
			continue
		}
		seen[r.Endpoint] = struct{}{}
		ranking = append(ranking, Entry{Endpoint: r.Endpoint, Latency: r.MeanLatency})
	}

	slices.SortStableFunc(ranking, func(a, b Entry) int {
		return cmp.Compare(a.Latency, b.Latency)
	})
	return ranking
}

// Best returns the first entry, or false when the ranking is empty.
func (r Ranking) Best() (Entry, bool) {
	if len(r) == 0 {
		return Entry{}, false
	}
	return r[0], true
}

// Contains reports whether ep is ranked.
func (r Ranking) Contains(ep Endpoint) bool {
	return slices.ContainsFunc(r, func(e Entry) bool { return e.Endpoint == ep })
}

// Clone returns an independent copy.
func (r Ranking) Clone() Ranking {
	if r == nil {
		return Ranking{}
	}
	return slices.Clone(r)
}

// Endpoints returns the ranked endpoints in order.
func (r Ranking) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r))
	for i, e := range r {
		out[i] = e.Endpoint
	}
	return out
}
