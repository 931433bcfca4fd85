package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/selector"
)

const (
	warmingUpMessage = "⏳ Warming up, try again shortly\n"
	noMirrorMessage  = "⚠️ No mirror is reachable right now, try again shortly\n"
	retryAfterSecs   = "60"
)

// Best redirects to the lowest-latency mirror. With ?redirect=false it answers
// the origin as text instead.
func Best(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect := true
		if v := r.URL.Query().Get("redirect"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, "invalid redirect parameter", http.StatusBadRequest)
				return
			}
			redirect = b
		}

		ep, ok := selectBest(w, d)
		if !ok {
			return
		}

		if !redirect {
			d.Metrics.ObserveRedirect("plain")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			if _, err := w.Write([]byte(ep.Origin())); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
			return
		}

		d.Metrics.ObserveRedirect("redirect")
		http.Redirect(w, r, selector.Target(ep, "", ""), http.StatusTemporaryRedirect)
	}
}

// Passthrough redirects to the best mirror keeping the request path and query,
// so /watch?v=abc lands on the same video.
func Passthrough(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ep, ok := selectBest(w, d)
		if !ok {
			return
		}

		target := selector.Target(ep, r.URL.EscapedPath(), r.URL.RawQuery)
		d.Logger.Debug("passthrough redirect",
			logger.String("path", r.URL.Path),
			logger.String("target", target))

		d.Metrics.ObserveRedirect("redirect")
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}
}
