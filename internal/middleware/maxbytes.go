package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies at 64 KiB; auth payloads are tiny.
const DefaultMaxBodyBytes = 64 << 10

// MaxBytes limits the request body size. Reads beyond maxBytes fail, which the
// JSON decoder reports as a bad request. Non-positive values use DefaultMaxBodyBytes.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
