package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/blogem/people-directory/httpx"
)

// DebugGuard leaves diagnostics open outside production. In production the
// caller must present token in the X-Debug-Token header, and an empty token
// closes the endpoints.
func DebugGuard(production bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if production {
				given := r.Header.Get("X-Debug-Token")
				if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
					httpx.WriteError(w, http.StatusForbidden, "forbidden", "forbidden", nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
