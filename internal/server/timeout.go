package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware caps how long a request context lives. Cancellation
// is cooperative: the upstream completion call carries the context and
// aborts when it expires, the handler is not forcibly terminated.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
