package api

import (
	"crypto/subtle"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

// BearerAuth requires "Authorization: Bearer <token>" on every request.
// An empty token lets all requests through.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				slog.Debug("rejected request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", `Bearer realm="vscpp"`)
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RejectBrowserRequests refuses requests a web page could forge against the
// loopback API: anything carrying an Origin header, and bodies that are not
// application/json. Editor hosts and the CLI send neither.
func RejectBrowserRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			slog.Warn("rejected browser request", "method", r.Method, "path", r.URL.Path, "origin", origin)
			httpError(w, http.StatusForbidden, "permission_error", "cross-origin requests are not allowed")
			return
		}
		if r.ContentLength != 0 {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "request body must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
