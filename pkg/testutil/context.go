package testutil

import (
	"net/http"
	"time"

	"accountflow/pkg/requestcontext"
)

// WithRequestID sets the request id the request-context middleware would
// normally assign.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request time so handlers produce deterministic
// timestamps.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
