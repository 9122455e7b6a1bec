package api

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"audiopress/internal/services"
)

// Authorizer decides whether a request may proceed. The default allows
// everything; deployments behind a shared host plug their own check in.
type Authorizer func(r *http.Request) error

func allowAll(*http.Request) error { return nil }

// withRequestID tags every request with a correlation ID, echoed back
// in the X-Request-ID header and attached to the request context for
// log correlation.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

// withRateLimit applies a shared token bucket across all callers.
// limiter may be nil to disable limiting.
func withRateLimit(limiter *rate.Limiter, onReject http.HandlerFunc, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			onReject(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
