package middleware

import (
	"net/http"

	"golang.org/x/sync/semaphore"

	"github.com/assetvault/service/internal/response"
)

// Limit bounds the number of requests in flight through the wrapped
// handlers. Waiting requests give up with 503 when their context ends.
func Limit(n int64) func(http.Handler) http.Handler {
	sem := semaphore.NewWeighted(n)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sem.Acquire(r.Context(), 1); err != nil {
				response.Unavailable(w, "server busy, try again later")
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}
