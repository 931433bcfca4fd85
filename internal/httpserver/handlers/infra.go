package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool     `json:"ok"`
	Ranked      *int     `json:"ranked,omitempty"`
	Best        string   `json:"best,omitempty"`
	BestLatency *float64 `json:"best_latency_ms,omitempty"`
	Mirrored    string   `json:"mirrored_best,omitempty"`
	LastRefresh string   `json:"last_refresh,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type infraResponse struct {
	State      string                     `json:"state"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		components := map[string]componentStatus{
			"ranking": checkRanking(d),
			"redis":   checkRedis(r.Context(), d),
		}

		response := infraResponse{
			State:      determineState(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func checkRanking(d deps.Deps) componentStatus {
	snap, ok := d.Index.Read()
	if !ok {
		return componentStatus{
			OK:          false,
			Mode:        "warming_up",
			LastRefresh: "never",
		}
	}

	ranked := len(snap.Ranking)
	status := componentStatus{
		OK:          ranked > 0,
		Ranked:      &ranked,
		Mode:        "ranked",
		LastRefresh: snap.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if best, ok := snap.Ranking.Best(); ok {
		ms := best.Latency * 1000
		status.Best = best.Endpoint.Origin()
		status.BestLatency = &ms
	} else {
		status.Mode = "empty"
		status.Error = "no mirror qualified in the last refresh"
	}
	return status
}

// determineState summarizes components: warming_up, critical, degraded or optimal.
func determineState(components map[string]componentStatus) string {
	if ranking, exists := components["ranking"]; exists && !ranking.OK {
		if ranking.Mode == "warming_up" {
			return "warming_up"
		}
		return "critical" // Nothing to redirect to
	}

	// Redis down = degraded (no snapshot mirror), disabled Redis is fine
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "optimal"
}

func checkRedis(parent context.Context, d deps.Deps) componentStatus {
	if d.Redis == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "snapshot-mirror-disabled",
		}
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.Redis.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "snapshot-mirror-unavailable",
			Error:  err.Error(),
		}
	}

	status := componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "snapshot-mirror-enabled",
	}
	// The mirrored best lags the in-memory one until the next snapshot is saved
	if top, err := d.Redis.TopOrigins(ctx, 1); err == nil && len(top) > 0 {
		status.Mirrored = top[0]
	}
	return status
}
