package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/mw"
)

func init() { Register("ranking", registerRanking) }

// Cached reads stay open. A synchronous refresh costs a full probing cycle, so
// it gets the same network filter and per-IP limit as POST /reload.
func registerRanking(r chi.Router, d deps.Deps) {
	ranking := handlers.Ranking(d)
	front := r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.When(handlers.WantsRefresh,
			mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.RateLimit(mw.RateLimitConfig{
				Burst:             d.ReloadBurst,
				RefillPerIPPerMin: d.ReloadPerMin,
				MaxEntries:        1024,
				TrustProxy:        d.TrustProxy,
				Logger:            d.Logger,
			}),
		),
	)
	front.Get("/best_servers", ranking)
	front.Get("/best-endpoints", ranking)
}
