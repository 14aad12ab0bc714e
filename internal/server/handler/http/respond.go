// Package http provides the HTTP handlers and routing of the StoreIt API:
// sign-up and login, password recovery and file administration.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/logger"
	"github.com/NiketSingh147/StoreIt/internal/middleware"
	"go.uber.org/zap"
)

const genericUpstreamMessage = "Service temporarily unavailable, please try again"

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Upstream failures get a generic
// message unless verbose is set.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, verbose bool) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.From(r.Context(), log).Error("request failed", zap.Error(err))
		if verbose {
			body.Error = err.Error()
		}
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrInvalidCode):
		return http.StatusUnauthorized, errorResponse{Error: "Incorrect OTP"}
	case errors.Is(err, common.ErrNoActiveSession):
		return http.StatusUnauthorized, errorResponse{Error: "No active session"}
	case errors.Is(err, common.ErrNoSuchUser):
		return http.StatusNotFound, errorResponse{Error: "User not found", ErrorType: "NO_USER"}
	case errors.Is(err, common.ErrWrongPassword):
		return http.StatusUnauthorized, errorResponse{Error: "Incorrect password", ErrorType: "WRONG_PASSWORD"}
	case errors.Is(err, common.ErrTokenInvalidOrUsed):
		return http.StatusGone, errorResponse{Error: "This reset link has expired or has already been used"}
	case errors.Is(err, common.ErrPasswordReused):
		return http.StatusConflict, errorResponse{Error: "New password must be different from the old one"}
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "Forbidden"}
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not found"}
	case errors.Is(err, common.ErrQuotaExceeded), errors.Is(err, common.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: "File is too large or storage quota exceeded"}
	case errors.Is(err, common.ErrUpstreamUnavailable):
		return http.StatusBadGateway, errorResponse{Error: genericUpstreamMessage}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrValidation)
	}
	return nil
}

func setSessionCookie(w http.ResponseWriter, token string, secure bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
