package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

// Guard is one request-scoped middleware step. Guards compose with Chain
// into a single ordered pipeline applied uniformly to the router, instead
// of each handler re-implementing its own auth/validation sequence.
type Guard func(http.Handler) http.Handler

// Chain applies guards in order: the first guard sees the request first.
func Chain(guards ...Guard) Guard {
	return func(next http.Handler) http.Handler {
		for i := len(guards) - 1; i >= 0; i-- {
			next = guards[i](next)
		}
		return next
	}
}

// Recover converts handler panics into a 500 envelope instead of tearing
// down the connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestLog logs method, path, and duration for every request.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

// publicPaths skip token verification.
var publicPaths = map[string]bool{
	"/health":    true,
	"/api/login": true,
}

// RequireAuth verifies the bearer token and attaches claims to the request
// context. Public paths pass through.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
