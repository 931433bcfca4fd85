package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/mw"
)

func init() { Register("best", registerBest) }

func registerBest(r chi.Router, d deps.Deps) {
	front := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	best := handlers.Best(d)
	front.Get("/", best)
	front.Get("/best_server", best)
	front.Get("/best-endpoint", best)

	passthrough := handlers.Passthrough(d)
	front.Get("/watch", passthrough)
	front.Get("/channel/*", passthrough)
}
