package middleware

import "net/http"

// DefaultMaxBody is applied to JSON routes. Uploads get their own limit.
const DefaultMaxBody = 1 << 20

// MaxBody caps the request body at limit bytes.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
