package service

import (
	"context"
	"errors"
	"testing"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recoveryAdmin models one account with password "hunter2" and a single
// outstanding recovery secret.
type recoveryAdmin struct {
	mockAdmin
	password string
	secret   string
	issued   []string
}

func newRecoveryAdmin() *recoveryAdmin {
	a := &recoveryAdmin{password: "hunter2", secret: "s3cret"}
	a.LookupFunc = func(_ context.Context, accountID string) (models.Identity, error) {
		if accountID != "acct-ada" {
			return models.Identity{}, common.ErrNotFound
		}
		return models.Identity{AccountID: accountID, Email: "ada@example.com"}, nil
	}
	a.PasswordLoginFunc = func(_ context.Context, _ string, pw string) (string, error) {
		if pw != a.password {
			return "", common.ErrUnauthorized
		}
		return "probe-token", nil
	}
	a.IssueRecoveryFunc = func(_ context.Context, email string) error {
		if email != "ada@example.com" {
			return common.ErrNotFound
		}
		a.issued = append(a.issued, email)
		return nil
	}
	a.PeekRecoveryFunc = func(_ context.Context, accountID, secret string) error {
		if accountID != "acct-ada" || a.secret == "" || secret != a.secret {
			return common.ErrInvalidOrUsed
		}
		return nil
	}
	a.ConsumeRecoveryFunc = func(ctx context.Context, accountID, secret, pw string) error {
		if err := a.PeekRecoveryFunc(ctx, accountID, secret); err != nil {
			return err
		}
		a.secret = ""
		a.password = pw
		return nil
	}
	return a
}

func TestInitiateRecovery(t *testing.T) {
	admin := newRecoveryAdmin()
	svc := NewRecoveryService(admin, &mockSessions{}, zap.NewNop())

	require.NoError(t, svc.InitiateRecovery(context.Background(), "Ada@Example.com"))
	assert.Equal(t, []string{"ada@example.com"}, admin.issued)

	assert.NoError(t, svc.InitiateRecovery(context.Background(), "ghost@example.com"), "unknown emails look like success")
	assert.Len(t, admin.issued, 1)

	assert.ErrorIs(t, svc.InitiateRecovery(context.Background(), "nope"), common.ErrValidation)

	admin.IssueRecoveryFunc = func(context.Context, string) error { return errors.New("smtp down") }
	assert.NoError(t, svc.InitiateRecovery(context.Background(), "ada@example.com"))
}

func TestCheckOldPassword_RevokesProbeSession(t *testing.T) {
	sessions := &mockSessions{}
	svc := NewRecoveryService(newRecoveryAdmin(), sessions, zap.NewNop())

	assert.True(t, svc.CheckOldPassword(context.Background(), "acct-ada", "hunter2"))
	assert.Equal(t, []string{"probe-token"}, sessions.invalidated)

	assert.False(t, svc.CheckOldPassword(context.Background(), "acct-ada", "different"))
	assert.False(t, svc.CheckOldPassword(context.Background(), "acct-ghost", "hunter2"))
	assert.False(t, svc.CheckOldPassword(context.Background(), "", "hunter2"))
	assert.Len(t, sessions.invalidated, 1)
}

func TestCheckOldPasswordWithSecret(t *testing.T) {
	svc := NewRecoveryService(newRecoveryAdmin(), &mockSessions{}, zap.NewNop())

	reused, err := svc.CheckOldPasswordWithSecret(context.Background(), "acct-ada", "s3cret", "hunter2")
	require.NoError(t, err)
	assert.True(t, reused)

	_, err = svc.CheckOldPasswordWithSecret(context.Background(), "acct-ada", "guess", "hunter2")
	assert.ErrorIs(t, err, common.ErrTokenInvalidOrUsed)
}

func TestCompleteRecovery(t *testing.T) {
	admin := newRecoveryAdmin()
	svc := NewRecoveryService(admin, &mockSessions{}, zap.NewNop())
	ctx := context.Background()

	err := svc.CompleteRecovery(ctx, "acct-ada", "s3cret", "hunter2")
	assert.ErrorIs(t, err, common.ErrPasswordReused)
	assert.Equal(t, "s3cret", admin.secret, "a reused password leaves the token usable")

	assert.ErrorIs(t, svc.CompleteRecovery(ctx, "acct-ada", "s3cret", "abc"), common.ErrValidation)

	require.NoError(t, svc.CompleteRecovery(ctx, "acct-ada", "s3cret", "correct-horse"))
	assert.Equal(t, "correct-horse", admin.password)

	err = svc.CompleteRecovery(ctx, "acct-ada", "s3cret", "another-one")
	assert.ErrorIs(t, err, common.ErrTokenInvalidOrUsed)
	assert.Equal(t, "correct-horse", admin.password)

	assert.ErrorIs(t, svc.CompleteRecovery(ctx, "", "", "another-one"), common.ErrTokenInvalidOrUsed)
}

func TestCompleteRecovery_UpstreamFailure(t *testing.T) {
	admin := newRecoveryAdmin()
	admin.PeekRecoveryFunc = func(context.Context, string, string) error { return errors.New("redis down") }
	svc := NewRecoveryService(admin, &mockSessions{}, zap.NewNop())

	err := svc.CompleteRecovery(context.Background(), "acct-ada", "s3cret", "correct-horse")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
}
