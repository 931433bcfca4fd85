package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
)

// Metrics exposes the prometheus registry.
func Metrics(d deps.Deps) http.Handler {
	return d.Metrics.Handler()
}
