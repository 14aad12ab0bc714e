package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/middleware"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/NiketSingh147/StoreIt/internal/service"
	"go.uber.org/zap"
)

// VerificationService defines the sign-up operations used by AuthHandler.
type VerificationService interface {
	RequestChallenge(ctx context.Context, email, fullName string) (string, error)
	ConsumeChallenge(ctx context.Context, accountID, code string) (string, error)
	EstablishPassword(ctx context.Context, token, password string) error
}

// SessionService defines the login operations used by the handlers.
type SessionService interface {
	Login(ctx context.Context, email, password string) (string, error)
	CurrentCaller(ctx context.Context, token string) service.Authorization
	Logout(ctx context.Context, token string)
}

// AuthRecorder counts auth flow outcomes.
type AuthRecorder interface {
	AuthOutcome(flow, result string)
}

// AuthHandler handles sign-up, login and logout.
type AuthHandler struct {
	Verification VerificationService
	Sessions     SessionService
	Metrics      AuthRecorder
	Log          *zap.Logger

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	SessionTTL    time.Duration
}

func (h *AuthHandler) record(flow string, err error) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.AuthOutcome(flow, outcome(err))
}

// outcome names an error kind for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrValidation):
		return "invalid_input"
	case errors.Is(err, common.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, common.ErrNoSuchUser):
		return "no_user"
	case errors.Is(err, common.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, common.ErrNoActiveSession):
		return "no_session"
	case errors.Is(err, common.ErrTokenInvalidOrUsed):
		return "token_invalid"
	case errors.Is(err, common.ErrPasswordReused):
		return "password_reused"
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return "upstream"
	}
	return "error"
}

type otpRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// RequestOTP creates the account on first use and mails a one-time code.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}

	accountID, err := h.Verification.RequestChallenge(r.Context(), req.Email, req.FullName)
	h.record("otp_request", err)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accountId": accountID})
}

type verifyRequest struct {
	AccountID string `json:"accountId"`
	Code      string `json:"code"`
}

// VerifyOTP exchanges a one-time code for a session cookie.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}

	token, err := h.Verification.ConsumeChallenge(r.Context(), req.AccountID, req.Code)
	h.record("otp_verify", err)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	setSessionCookie(w, token, h.SecureCookies, h.SessionTTL)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// SetPassword sets the first password using the OTP session cookie. The
// session ends, so the cookie is cleared and the user signs in again.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}

	err := h.Verification.EstablishPassword(r.Context(), middleware.SessionToken(r), req.Password)
	h.record("set_password", err)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	clearSessionCookie(w, h.SecureCookies)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login opens a password session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}

	token, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	h.record("login", err)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	setSessionCookie(w, token, h.SecureCookies, h.SessionTTL)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Logout revokes the session, clears the cookie and sends the browser to
// the sign-in page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context(), middleware.SessionToken(r))
	clearSessionCookie(w, h.SecureCookies)
	http.Redirect(w, r, middleware.SignInPath, http.StatusSeeOther)
}

type meResponse struct {
	Caller *models.Profile `json:"caller"`
}

// Me returns the current caller, or null.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	var resp meResponse
	if caller, ok := h.Sessions.CurrentCaller(r.Context(), middleware.SessionToken(r)).Caller(); ok {
		resp.Caller = &caller
	}
	writeJSON(w, http.StatusOK, resp)
}
