package middleware

import (
	"net/http"
	"time"

	"github.com/NiketSingh147/StoreIt/internal/logger"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// WithRequestLogging logs every request once it completes and hands a
// request scoped logger to the handlers through the context.
func WithRequestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := log
			if id := chiMiddleware.GetReqID(r.Context()); id != "" {
				reqLog = log.With(zap.String("request_id", id))
			}
			ctx := logger.ToContext(r.Context(), reqLog)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLog.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}
