package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const (
	// KeyNameKey carries the matched admin key's name in the context.
	KeyNameKey contextKey = "api_key_name"
)

// APIKeyAuth validates the API key on admin routes. validKeys maps a key
// name to its secret.
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// Constant-time comparison to prevent timing attacks
			var matched string
			for name, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					matched = name
					break
				}
			}
			if matched == "" {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), KeyNameKey, matched)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KeyNameFromContext extracts the matched key name, empty when unauthenticated.
func KeyNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(KeyNameKey).(string); ok {
		return name
	}
	return ""
}
