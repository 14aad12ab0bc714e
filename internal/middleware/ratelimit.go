package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/NiketSingh147/StoreIt/internal/logger"
	"github.com/NiketSingh147/StoreIt/internal/rate"
	"go.uber.org/zap"
)

// RateLimitRecorder counts rejected requests.
type RateLimitRecorder interface {
	RateLimited(route string)
}

// WithRateLimit rejects requests over the limiter's budget for the client IP
// and route with 429 and a Retry-After header. Limiter failures let the
// request through.
func WithRateLimit(limiter rate.Limiter, rec RateLimitRecorder, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if p := routePattern(r); p != "unmatched" {
				route = p
			}

			res, err := limiter.Allow(r.Context(), clientIP(r)+"|"+route)
			if err != nil {
				logger.From(r.Context(), log).Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				if rec != nil {
					rec.RateLimited(route)
				}
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
