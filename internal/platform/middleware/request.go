package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"accountflow/pkg/requestcontext"
)

// RequestContext copies chi's request id into requestcontext and pins the
// request time so every timestamp written during the request agrees.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, chimw.GetReqID(ctx))
		ctx = requestcontext.WithTime(ctx, time.Now())
		if reviewer := r.Header.Get("X-Reviewer"); reviewer != "" {
			ctx = requestcontext.WithReviewer(ctx, reviewer)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs each request's method, path, status and duration.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
