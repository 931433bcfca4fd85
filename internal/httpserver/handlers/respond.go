package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/selector"
)

// selectBest returns the best endpoint, or answers 503 and returns false.
func selectBest(w http.ResponseWriter, d deps.Deps) (domain.Endpoint, bool) {
	ep, err := d.Selector.Best()
	if err == nil {
		return ep, true
	}

	if selector.IsWarmingUp(err) {
		d.Metrics.ObserveRedirect("warming_up")
		writeUnavailable(w, d, warmingUpMessage)
	} else {
		d.Metrics.ObserveRedirect("empty")
		writeUnavailable(w, d, noMirrorMessage)
	}
	return "", false
}

func writeUnavailable(w http.ResponseWriter, d deps.Deps, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", retryAfterSecs)
	w.WriteHeader(http.StatusServiceUnavailable)
	if _, err := w.Write([]byte(msg)); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
