package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string     `json:"status"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Ranked        int        `json:"ranked"`
	LastRefresh   *time.Time `json:"last_refresh,omitempty"`
	Version       string     `json:"version,omitempty"`
	Commit        string     `json:"commit,omitempty"`
	BuildDate     string     `json:"build_date,omitempty"`
	GoVersion     string     `json:"go_version,omitempty"`
}

// Healthz is the liveness probe: always 200 while the process serves HTTP,
// warm or not. Readiness lives on /readyz.
func Healthz(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			UptimeSeconds: now().Sub(d.StartTime).Seconds(),
			Ranked:        d.Index.Count(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		}
		if last := d.Index.GetLastReload(); !last.IsZero() {
			resp.LastRefresh = &last
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
