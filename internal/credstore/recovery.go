package credstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/mail"
)

// IssueRecoveryToken mails a single-use reset link to email. Unknown emails
// yield common.ErrNotFound and nothing is sent.
func (s *Store) IssueRecoveryToken(ctx context.Context, email string) error {
	id, err := s.FindIdentityByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("issue recovery: %w", err)
	}

	secret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}
	if err := s.tokens.Put(ctx, recoveryKey(id.AccountID), s.digest(id.AccountID, secret), s.opts.RecoveryTTL); err != nil {
		return fmt.Errorf("store recovery token: %w", err)
	}

	msg, err := mail.RecoveryMessage(id.Email, s.recoveryLink(id.AccountID, secret))
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send recovery link: %w", err)
	}
	return nil
}

func (s *Store) recoveryLink(accountID, secret string) string {
	q := url.Values{}
	q.Set("userId", accountID)
	q.Set("secret", secret)
	return s.opts.AppURL + "/reset-password?" + q.Encode()
}

// PeekRecoveryToken checks that secret is the account's current recovery
// token without consuming it.
func (s *Store) PeekRecoveryToken(ctx context.Context, accountID, secret string) error {
	if accountID == "" || secret == "" {
		return common.ErrInvalidOrUsed
	}
	stored, err := s.tokens.Get(ctx, recoveryKey(accountID))
	if err != nil {
		if isMissing(err) {
			return common.ErrInvalidOrUsed
		}
		return fmt.Errorf("peek recovery token: %w", err)
	}
	if !equalDigest(stored, s.digest(accountID, secret)) {
		return common.ErrInvalidOrUsed
	}
	return nil
}

// ConsumeRecoveryToken uses the recovery token once to set a new password.
// Expired, used and malformed tokens yield common.ErrInvalidOrUsed.
func (s *Store) ConsumeRecoveryToken(ctx context.Context, accountID, secret, password string) error {
	if accountID == "" || secret == "" {
		return common.ErrInvalidOrUsed
	}
	if err := s.tokens.TakeIf(ctx, recoveryKey(accountID), s.digest(accountID, secret)); err != nil {
		if isMissing(err) {
			return common.ErrInvalidOrUsed
		}
		return fmt.Errorf("consume recovery token: %w", err)
	}
	return s.setPassword(ctx, accountID, password)
}
