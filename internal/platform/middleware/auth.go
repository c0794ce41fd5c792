package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"accountflow/pkg/requestcontext"
)

// APIKeyHeader carries the shared API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key does not match expected.
// An empty expected key disables the check for local development.
func RequireAPIKey(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "api key mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"valid API key required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
