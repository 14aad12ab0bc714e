package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerificationService drives an account from Unregistered through
// ChallengeIssued and Verified to Active.
type VerificationService struct {
	admin     AdminGateway
	sessions  SessionGateway
	profiles  ProfileStore
	avatarURL string
	log       *zap.Logger
}

// NewVerificationService creates a VerificationService. avatarURL is the
// placeholder avatar given to new profiles.
func NewVerificationService(admin AdminGateway, sessions SessionGateway, profiles ProfileStore, avatarURL string, log *zap.Logger) *VerificationService {
	return &VerificationService{admin: admin, sessions: sessions, profiles: profiles, avatarURL: avatarURL, log: log}
}

// RequestChallenge makes sure an identity and a profile exist for email and
// issues a fresh one-time code. It returns the account id the code was
// issued for. fullName is only required when no profile exists yet.
func (s *VerificationService) RequestChallenge(ctx context.Context, email, fullName string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	accountID, err := s.ensureAccount(ctx, email, fullName)
	if err != nil {
		return "", err
	}

	if err := s.admin.IssueChallenge(ctx, accountID); err != nil {
		return "", common.Upstream(fmt.Errorf("issue challenge: %w", err))
	}
	return accountID, nil
}

func (s *VerificationService) ensureAccount(ctx context.Context, email, fullName string) (string, error) {
	profile, err := s.profiles.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return profile.AccountID, nil
	case !errors.Is(err, common.ErrNotFound):
		return "", common.Upstream(fmt.Errorf("find profile: %w", err))
	}

	name, err := validateFullName(fullName)
	if err != nil {
		return "", err
	}

	accountID, err := s.admin.CreateIdentity(ctx, email, name)
	if errors.Is(err, common.ErrConflict) {
		// identity left behind by an earlier attempt
		var id models.Identity
		id, err = s.admin.FindIdentityByEmail(ctx, email)
		accountID = id.AccountID
	}
	if err != nil {
		return "", common.Upstream(fmt.Errorf("ensure identity: %w", err))
	}

	stored, err := s.profiles.Create(ctx, models.Profile{
		ID:        uuid.NewString(),
		AccountID: accountID,
		FullName:  name,
		Email:     email,
		Avatar:    s.avatarURL,
	})
	if err != nil {
		return "", common.Upstream(fmt.Errorf("create profile: %w", err))
	}
	return stored.AccountID, nil
}

// ConsumeChallenge exchanges a valid code for an OTP session token. Unknown
// accounts and wrong codes are indistinguishable: both yield
// common.ErrInvalidCode.
func (s *VerificationService) ConsumeChallenge(ctx context.Context, accountID, code string) (string, error) {
	token, err := s.admin.VerifyChallenge(ctx, accountID, code)
	if err != nil {
		if common.IsKnown(err) && !errors.Is(err, common.ErrUpstreamUnavailable) {
			return "", common.ErrInvalidCode
		}
		return "", common.Upstream(fmt.Errorf("verify challenge: %w", err))
	}
	return token, nil
}

// EstablishPassword sets the first password of an account using the OTP
// session from ConsumeChallenge, then ends that session. Accounts that
// already have a password must go through recovery instead.
func (s *VerificationService) EstablishPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return common.ErrNoActiveSession
	}
	sess, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		if !errors.Is(err, common.ErrNoSession) {
			s.log.Warn("resolve session failed", zap.Error(err))
		}
		return common.ErrNoActiveSession
	}
	if sess.Method != models.AuthOTP {
		return common.ErrNoActiveSession
	}
	id, err := s.admin.LookupIdentity(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNoActiveSession
		}
		return common.Upstream(fmt.Errorf("lookup identity: %w", err))
	}
	if id.HasPassword() {
		return common.ErrNoActiveSession
	}

	if err := ValidatePassword(password); err != nil {
		return err
	}

	if err := s.sessions.ChangePassword(ctx, token, password); err != nil {
		if errors.Is(err, common.ErrNoSession) {
			return common.ErrNoActiveSession
		}
		return common.Upstream(fmt.Errorf("change password: %w", err))
	}

	if err := s.sessions.InvalidateSession(ctx, token); err != nil {
		s.log.Warn("invalidate otp session failed", zap.String("account_id", sess.AccountID), zap.Error(err))
	}
	return nil
}
