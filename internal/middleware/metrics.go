package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestRecorder receives per-request measurements.
type RequestRecorder interface {
	RequestStarted()
	RequestFinished(method, route string, status int, elapsed time.Duration)
}

// WithMetrics records every request under its chi route pattern so that
// path parameters do not explode label cardinality.
func WithMetrics(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			rec.RequestStarted()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.RequestFinished(r.Method, routePattern(r), status, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
