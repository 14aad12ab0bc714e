package credstore

import (
	"context"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/mail"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"go.uber.org/zap"
)

// IssueChallenge mails a fresh one-time code to the account's email. The
// new code supersedes any earlier one.
func (s *Store) IssueChallenge(ctx context.Context, accountID string) error {
	id, err := s.identities.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("issue challenge: %w", err)
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.tokens.Put(ctx, otpKey(accountID), s.digest(accountID, code), s.opts.OTPTTL); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := s.tokens.Delete(ctx, otpFailuresKey(accountID)); err != nil {
		return fmt.Errorf("reset code attempts: %w", err)
	}

	msg, err := mail.OTPMessage(id.Email, code, int(s.opts.OTPTTL.Minutes()))
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	s.log.Debug("challenge issued", zap.String("account_id", accountID))
	return nil
}

// VerifyChallenge consumes the account's current code and opens an OTP
// session. A wrong, expired or already used code yields
// common.ErrUnauthorized. Every attempt counts against the code; once
// MaxOTPAttempts is exceeded the code is burned and a new one must be
// requested.
func (s *Store) VerifyChallenge(ctx context.Context, accountID, code string) (string, error) {
	if accountID == "" || code == "" {
		return "", common.ErrUnauthorized
	}

	attempts, err := s.tokens.Incr(ctx, otpFailuresKey(accountID), s.opts.OTPTTL)
	if err != nil {
		return "", fmt.Errorf("count code attempts: %w", err)
	}
	if attempts > int64(s.opts.MaxOTPAttempts) {
		if err := s.tokens.Delete(ctx, otpKey(accountID)); err != nil {
			return "", fmt.Errorf("burn code: %w", err)
		}
		s.log.Info("one-time code burned after too many attempts", zap.String("account_id", accountID))
		return "", common.ErrUnauthorized
	}

	if err := s.tokens.TakeIf(ctx, otpKey(accountID), s.digest(accountID, code)); err != nil {
		if isMissing(err) {
			return "", common.ErrUnauthorized
		}
		return "", fmt.Errorf("verify challenge: %w", err)
	}
	if err := s.tokens.Delete(ctx, otpFailuresKey(accountID)); err != nil {
		s.log.Warn("reset code attempts failed", zap.String("account_id", accountID), zap.Error(err))
	}

	if err := s.identities.MarkVerified(ctx, accountID); err != nil {
		if isMissing(err) {
			return "", common.ErrUnauthorized
		}
		return "", err
	}
	return s.openSession(ctx, accountID, models.AuthOTP)
}
