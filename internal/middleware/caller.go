// Package middleware provides the HTTP middlewares of the StoreIt API:
// caller resolution, request logging, metrics and rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/NiketSingh147/StoreIt/internal/service"
)

// SessionCookie carries the session token between browser and server.
const SessionCookie = "storeit-session"

// SignInPath is where unauthenticated page loads are sent.
const SignInPath = "/sign-in"

type ctxKey string

const callerKey ctxKey = "caller"

// CallerResolver turns a session token into an Authorization.
type CallerResolver interface {
	CurrentCaller(ctx context.Context, token string) service.Authorization
}

// SessionToken returns the session token of r, or "" when the cookie is
// absent.
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// RequireCaller resolves the caller from the session cookie and stores it in
// the request context. Requests without a caller never reach next: GET
// requests are redirected to the sign-in page and everything else gets 401.
func RequireCaller(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := resolver.CurrentCaller(r.Context(), SessionToken(r)).Caller()
			if !ok {
				if r.Method == http.MethodGet {
					http.Redirect(w, r, SignInPath, http.StatusSeeOther)
					return
				}
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller models.Profile) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFrom extracts the caller stored by RequireCaller.
func CallerFrom(ctx context.Context) (models.Profile, bool) {
	caller, ok := ctx.Value(callerKey).(models.Profile)
	return caller, ok
}
