package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool `json:"ready"`
	Ranked int  `json:"ranked"`
}

// Readyz answers 503 until the first ranking is published.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		ready := d.Index.Warm()
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready:  ready,
			Ranked: d.Index.Count(),
		})
	}
}
