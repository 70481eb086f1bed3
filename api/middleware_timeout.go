package api

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds the request context with timeout. Handlers see the
// deadline through r.Context() and their database calls fail once it passes.
// Paths in skip, such as long lived websocket feeds, keep an unbounded context.
func TimeoutMiddleware(timeout time.Duration, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]bool, len(skip))
	for _, path := range skip {
		skipped[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
