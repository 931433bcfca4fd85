package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/mw"
)

func init() { Register("reload", registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.ReloadBurst,
			RefillPerIPPerMin: d.ReloadPerMin,
			MaxEntries:        1024,
			TrustProxy:        d.TrustProxy,
			Logger:            d.Logger,
		}),
	).Post("/reload", handlers.Reload(d))
}
