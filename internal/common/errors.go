// Package common holds the error kinds shared by the service, its
// upstream adapters and the HTTP layer.
package common

import "errors"

var (
	// verification and session errors
	ErrInvalidCode     = errors.New("incorrect OTP")
	ErrNoActiveSession = errors.New("no active session")
	ErrNoSuchUser      = errors.New("user not registered")
	ErrWrongPassword   = errors.New("incorrect password")

	// recovery errors
	ErrTokenInvalidOrUsed = errors.New("reset link expired or already used")
	ErrPasswordReused     = errors.New("password matches the previous password")

	// upstream contract errors
	ErrConflict            = errors.New("already exists")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidOrUsed       = errors.New("token invalid or used")
	ErrNoSession           = errors.New("no session")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// repository specific errors
	ErrNotFound = errors.New("not found")

	// request errors
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation error")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrFileTooLarge  = errors.New("file too large")
)

// Upstream marks err as an upstream failure unless it already carries one of
// the known kinds.
func Upstream(err error) error {
	if err == nil || IsKnown(err) {
		return err
	}
	return errors.Join(ErrUpstreamUnavailable, err)
}

// IsKnown reports whether err matches one of the kinds declared in this package.
func IsKnown(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

var kinds = []error{
	ErrInvalidCode, ErrNoActiveSession, ErrNoSuchUser, ErrWrongPassword,
	ErrTokenInvalidOrUsed, ErrPasswordReused, ErrConflict, ErrUnauthorized,
	ErrInvalidOrUsed, ErrNoSession, ErrUpstreamUnavailable, ErrNotFound,
	ErrForbidden, ErrValidation, ErrQuotaExceeded, ErrFileTooLarge,
}
