package api

import (
	"net/http"
	"strings"
)

// openPaths are reachable without a registered origin: liveness, health,
// metrics and the webhook endpoint called by the wallet API itself.
func openPath(path string) bool {
	switch path {
	case "/", "/health", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/api/v1/webhook")
}

// withOriginPolicy applies CORS headers for registered origins and rejects
// requests from unregistered origins on protected paths. Requests without an
// Origin header (server-to-server, curl) pass through.
func (s *Server) withOriginPolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && s.registry.OriginAllowed(r.Context(), origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-hash")
			w.Header().Set("Vary", "Origin")
		} else if origin != "" && !openPath(r.URL.Path) {
			writeFailure(w, http.StatusForbidden, "origin not allowed")
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
