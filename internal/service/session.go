package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"go.uber.org/zap"
)

// Authorization is the outcome of resolving a request's caller: either
// Authorized with a profile or Unauthenticated.
type Authorization struct {
	caller *models.Profile
}

// Unauthenticated is the Authorization of an anonymous request.
var Unauthenticated = Authorization{}

// Authorized returns the Authorization of caller.
func Authorized(caller models.Profile) Authorization {
	return Authorization{caller: &caller}
}

// Caller returns the authorized profile, if any.
func (a Authorization) Caller() (models.Profile, bool) {
	if a.caller == nil {
		return models.Profile{}, false
	}
	return *a.caller, true
}

// IsAuthenticated reports whether a caller was resolved.
func (a Authorization) IsAuthenticated() bool { return a.caller != nil }

// SessionService logs users in and out and resolves the current caller.
type SessionService struct {
	admin    AdminGateway
	sessions SessionGateway
	profiles ProfileStore
	log      *zap.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(admin AdminGateway, sessions SessionGateway, profiles ProfileStore, log *zap.Logger) *SessionService {
	return &SessionService{admin: admin, sessions: sessions, profiles: profiles, log: log}
}

// Login opens a password session for email.
func (s *SessionService) Login(ctx context.Context, email, password string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	if _, err := s.profiles.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNoSuchUser
		}
		return "", common.Upstream(fmt.Errorf("find profile: %w", err))
	}

	token, err := s.admin.PasswordLogin(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return "", common.ErrWrongPassword
		}
		return "", common.Upstream(fmt.Errorf("password login: %w", err))
	}
	return token, nil
}

// CurrentCaller resolves token to a profile. It never fails: every problem
// yields Unauthenticated.
func (s *SessionService) CurrentCaller(ctx context.Context, token string) Authorization {
	if token == "" {
		return Unauthenticated
	}
	sess, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		if !errors.Is(err, common.ErrNoSession) {
			s.log.Warn("resolve session failed", zap.Error(err))
		}
		return Unauthenticated
	}
	profile, err := s.profiles.FindByAccountID(ctx, sess.AccountID)
	if err != nil {
		s.log.Warn("session without profile", zap.String("account_id", sess.AccountID), zap.Error(err))
		return Unauthenticated
	}
	return Authorized(profile)
}

// Logout revokes token on a best-effort basis.
func (s *SessionService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.sessions.InvalidateSession(ctx, token); err != nil {
		s.log.Warn("logout: invalidate session failed", zap.Error(err))
	}
}
