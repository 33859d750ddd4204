package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// contentSecurityPolicy fits the embedded dashboard: one script and one
// stylesheet from /assets, JSON fetched from the same origin.
const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; " +
	"connect-src 'self'; base-uri 'self'; form-action 'self'; frame-ancestors 'none'"

// SecurityHeadersMiddleware adds security headers to responses
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
		// HSTS only when the client reached us over TLS
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// requiresAuth reports whether the API token guards path. That is every
// /api/ route, uploads and their downloads included. The UI shell and its
// assets stay public so the browser can ask for the token, and /mcp checks
// the separate MCP token itself.
func requiresAuth(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// CheckBearer reports whether the request carries "Bearer <token>". The
// scheme is matched case-insensitively.
func CheckBearer(r *http.Request, token string) bool {
	scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	value = strings.TrimSpace(value)
	return value != "" && subtle.ConstantTimeCompare([]byte(value), []byte(token)) == 1
}

// AuthMiddleware requires the API token on protected routes. An empty token
// disables the check.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" || !requiresAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !CheckBearer(r, token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="camdash"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
