package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/utils"
)

// AllowOnlyCIDRS rejects with 403 any client whose address is outside the given
// networks (bare IPs count as /32 or /128). An empty list disables the check.
// With trustProxy the client address is the first X-Forwarded-For hop.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	matcher := utils.NewIPMatcher(allowed)
	if matcher.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("client network filter enabled",
		logger.Strings("cidrs", allowed),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if matcher.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			log.Warn("client outside allowed networks",
				logger.String("ip", ip),
				logger.String("remote_addr", r.RemoteAddr),
				logger.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
