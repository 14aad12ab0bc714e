package http

import (
	"net/http"

	"github.com/NiketSingh147/StoreIt/internal/metrics"
	"github.com/NiketSingh147/StoreIt/internal/middleware"
	"github.com/NiketSingh147/StoreIt/internal/rate"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Recovery *RecoveryHandler
	Files    *FileHandler
}

// NewRouter constructs the HTTP handler of the StoreIt API.
//
// Routes:
//
//	POST   /api/auth/otp                 → Auth.RequestOTP (rate limited)
//	POST   /api/auth/otp/verify          → Auth.VerifyOTP (rate limited)
//	POST   /api/auth/password            → Auth.SetPassword
//	POST   /api/auth/login               → Auth.Login (rate limited)
//	POST   /api/auth/logout              → Auth.Logout
//	GET    /api/auth/me                  → Auth.Me
//	POST   /api/recovery                 → Recovery.Initiate (rate limited)
//	POST   /api/recovery/check           → Recovery.CheckOld (rate limited)
//	POST   /api/recovery/complete        → Recovery.Complete (rate limited)
//	GET    /api/usage                    → Files.Usage
//	GET    /api/files                    → Files.List
//	POST   /api/files                    → Files.Upload (multipart)
//	PATCH  /api/files/{id}               → Files.Rename
//	DELETE /api/files/{id}               → Files.Delete
//	PUT    /api/files/{id}/shared-with   → Files.UpdateSharedWith
//	GET    /api/files/{id}/download      → Files.Download
//	GET    /healthz, GET /metrics
//
// The /api/files routes require a caller (middleware.RequireCaller).
// Bodies of the JSON routes must be application/json.
func NewRouter(
	h Handlers,
	callers middleware.CallerResolver,
	limiter rate.Limiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithMetrics(m))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	limited := middleware.WithRateLimit(limiter, m, logger)
	jsonOnly := chiMiddleware.AllowContentType("application/json")

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(jsonOnly)
			r.With(limited).Post("/otp", h.Auth.RequestOTP)
			r.With(limited).Post("/otp/verify", h.Auth.VerifyOTP)
			r.Post("/password", h.Auth.SetPassword)
			r.With(limited).Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
		})

		r.Route("/recovery", func(r chi.Router) {
			r.Use(jsonOnly)
			r.With(limited).Post("/", h.Recovery.Initiate)
			r.With(limited).Post("/check", h.Recovery.CheckOld)
			r.With(limited).Post("/complete", h.Recovery.Complete)
		})

		r.Get("/usage", h.Files.Usage)

		// Protected group: requires a signed-in caller
		r.Route("/files", func(r chi.Router) {
			r.Use(middleware.RequireCaller(callers))
			r.Get("/", h.Files.List)
			r.Post("/", h.Files.Upload)
			r.Get("/{id}/download", h.Files.Download)
			r.With(jsonOnly).Patch("/{id}", h.Files.Rename)
			r.Delete("/{id}", h.Files.Delete)
			r.With(jsonOnly).Put("/{id}/shared-with", h.Files.UpdateSharedWith)
		})
	})

	return r
}
