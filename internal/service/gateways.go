// Package service implements StoreIt's identity verification, session,
// recovery and file workflows on top of narrow collaborator interfaces.
package service

import (
	"context"
	"io"

	"github.com/NiketSingh147/StoreIt/internal/mail"
	"github.com/NiketSingh147/StoreIt/internal/models"
)

// AdminGateway is the privileged side of the credential store. It may act
// on any account.
type AdminGateway interface {
	CreateIdentity(ctx context.Context, email, name string) (string, error)
	FindIdentityByEmail(ctx context.Context, email string) (models.Identity, error)
	LookupIdentity(ctx context.Context, accountID string) (models.Identity, error)
	IssueChallenge(ctx context.Context, accountID string) error
	// VerifyChallenge returns a session token authenticated by OTP.
	VerifyChallenge(ctx context.Context, accountID, code string) (string, error)
	// PasswordLogin returns a session token authenticated by password.
	PasswordLogin(ctx context.Context, email, password string) (string, error)
	IssueRecoveryToken(ctx context.Context, email string) error
	PeekRecoveryToken(ctx context.Context, accountID, secret string) error
	ConsumeRecoveryToken(ctx context.Context, accountID, secret, password string) error
}

// SessionGateway acts only within the scope of the given session token.
type SessionGateway interface {
	ResolveSession(ctx context.Context, token string) (models.Session, error)
	ChangePassword(ctx context.Context, token, password string) error
	InvalidateSession(ctx context.Context, token string) error
}

// ProfileStore persists profiles.
type ProfileStore interface {
	// Create is idempotent on email and returns the stored profile.
	Create(ctx context.Context, p models.Profile) (models.Profile, error)
	FindByEmail(ctx context.Context, email string) (models.Profile, error)
	FindByAccountID(ctx context.Context, accountID string) (models.Profile, error)
}

// FileStore persists file metadata.
type FileStore interface {
	Create(ctx context.Context, f models.File) (models.File, error)
	Get(ctx context.Context, id string) (models.File, error)
	List(ctx context.Context, ownerID, email string, q models.FileQuery) ([]models.File, error)
	ListOwned(ctx context.Context, ownerID string) ([]models.File, error)
	Rename(ctx context.Context, id, name string) (models.File, error)
	SetSharedWith(ctx context.Context, id string, emails []string) (models.File, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore keeps file contents.
type BlobStore interface {
	PutBlob(ctx context.Context, name, contentType string, size int64, body io.Reader) (string, error)
	DeleteBlob(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key, fileName string) (string, error)
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}
