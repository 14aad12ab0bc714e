package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"go.uber.org/zap"
)

// RecoveryService resets forgotten passwords with single-use tokens.
type RecoveryService struct {
	admin    AdminGateway
	sessions SessionGateway
	log      *zap.Logger
}

// NewRecoveryService creates a RecoveryService.
func NewRecoveryService(admin AdminGateway, sessions SessionGateway, log *zap.Logger) *RecoveryService {
	return &RecoveryService{admin: admin, sessions: sessions, log: log}
}

// InitiateRecovery mails a reset link when email belongs to an account.
// Apart from a malformed email it always succeeds, so callers cannot tell
// registered addresses from unknown ones.
func (s *RecoveryService) InitiateRecovery(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.admin.IssueRecoveryToken(ctx, email); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.log.Info("recovery requested for unknown email")
		} else {
			s.log.Error("issue recovery token failed", zap.Error(err))
		}
	}
	return nil
}

// CheckOldPassword reports whether candidate is the account's current
// password. The probe session it opens is revoked immediately and the
// account is never modified. Errors count as "not reused".
func (s *RecoveryService) CheckOldPassword(ctx context.Context, accountID, candidate string) bool {
	if accountID == "" || candidate == "" {
		return false
	}
	id, err := s.admin.LookupIdentity(ctx, accountID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.log.Warn("reuse probe: lookup identity failed", zap.Error(err))
		}
		return false
	}
	token, err := s.admin.PasswordLogin(ctx, id.Email, candidate)
	if err != nil {
		if !errors.Is(err, common.ErrUnauthorized) {
			s.log.Warn("reuse probe: login failed", zap.Error(err))
		}
		return false
	}
	if err := s.sessions.InvalidateSession(ctx, token); err != nil {
		s.log.Warn("reuse probe: invalidate probe session failed", zap.Error(err))
	}
	return true
}

// CheckOldPasswordWithSecret runs CheckOldPassword only for holders of a
// currently valid recovery secret.
func (s *RecoveryService) CheckOldPasswordWithSecret(ctx context.Context, accountID, secret, candidate string) (bool, error) {
	if err := s.peek(ctx, accountID, secret); err != nil {
		return false, err
	}
	return s.CheckOldPassword(ctx, accountID, candidate), nil
}

// CompleteRecovery sets newPassword using the recovery secret. A password
// equal to the current one is rejected with common.ErrPasswordReused and
// leaves the token usable.
func (s *RecoveryService) CompleteRecovery(ctx context.Context, accountID, secret, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.peek(ctx, accountID, secret); err != nil {
		return err
	}
	if s.CheckOldPassword(ctx, accountID, newPassword) {
		return common.ErrPasswordReused
	}
	if err := s.admin.ConsumeRecoveryToken(ctx, accountID, secret, newPassword); err != nil {
		if errors.Is(err, common.ErrInvalidOrUsed) {
			return common.ErrTokenInvalidOrUsed
		}
		return common.Upstream(fmt.Errorf("consume recovery token: %w", err))
	}
	return nil
}

func (s *RecoveryService) peek(ctx context.Context, accountID, secret string) error {
	if accountID == "" || secret == "" {
		return common.ErrTokenInvalidOrUsed
	}
	if err := s.admin.PeekRecoveryToken(ctx, accountID, secret); err != nil {
		if errors.Is(err, common.ErrInvalidOrUsed) {
			return common.ErrTokenInvalidOrUsed
		}
		return common.Upstream(fmt.Errorf("check recovery token: %w", err))
	}
	return nil
}
