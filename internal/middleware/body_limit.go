package middleware

import (
	"encoding/json"
	"net/http"
)

// DefaultMaxBodySize comfortably fits every request body the API accepts.
const DefaultMaxBodySize int64 = 64 << 10

// MaxBodySize returns middleware that limits request body size. Requests that
// declare a larger Content-Length are rejected with 413 before reaching the
// handler; others fail on read once they pass maxBytes.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				//nolint:errcheck // Response write errors are unrecoverable
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "request_too_large",
					"message": "Request body too large",
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
