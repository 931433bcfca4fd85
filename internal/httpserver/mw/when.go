package mw

import "net/http"

// When applies mws only to requests matching pred. Other requests go straight
// to the next handler.
func When(pred func(*http.Request) bool, mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := next
		for i := len(mws) - 1; i >= 0; i-- {
			guarded = mws[i](guarded)
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pred(r) {
				guarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
