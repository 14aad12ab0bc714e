// Package credstore is the credential store behind StoreIt's sign-up, login
// and recovery flows. It owns identities and password hashes, issues and
// verifies one-time codes, mints signed session tokens and manages
// single-use recovery tokens.
package credstore

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/mail"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/NiketSingh147/StoreIt/internal/tokenstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityRepository persists identities.
type IdentityRepository interface {
	Create(ctx context.Context, id models.Identity) error
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	FindByID(ctx context.Context, accountID string) (models.Identity, error)
	MarkVerified(ctx context.Context, accountID string) error
	SetPasswordHash(ctx context.Context, accountID, hash string) error
}

// Options holds the store's lifetimes and links.
type Options struct {
	SecretKey   []byte
	SessionTTL  time.Duration
	OTPTTL      time.Duration
	RecoveryTTL time.Duration
	// MaxOTPAttempts is how many wrong codes burn the current code.
	// Zero means DefaultMaxOTPAttempts.
	MaxOTPAttempts int
	// AppURL is the public base URL used in recovery links.
	AppURL string
}

// DefaultMaxOTPAttempts is used when Options.MaxOTPAttempts is zero.
const DefaultMaxOTPAttempts = 5

// Store implements the privileged and the session-scoped credential
// operations.
type Store struct {
	identities IdentityRepository
	tokens     tokenstore.Store
	mail       mail.Sender
	opts       Options
	log        *zap.Logger

	// Argon2 is exported so tests can lower the cost.
	Argon2 Argon2Params

	newCode func() (string, error)
	now     func() time.Time
}

// New creates a Store.
func New(identities IdentityRepository, tokens tokenstore.Store, sender mail.Sender, opts Options, log *zap.Logger) *Store {
	if opts.MaxOTPAttempts <= 0 {
		opts.MaxOTPAttempts = DefaultMaxOTPAttempts
	}
	return &Store{
		identities: identities,
		tokens:     tokens,
		mail:       sender,
		opts:       opts,
		log:        log,
		Argon2:     DefaultArgon2,
		newCode:    sixDigitCode,
		now:        time.Now,
	}
}

func otpKey(accountID string) string         { return "otp:" + accountID }
func otpFailuresKey(accountID string) string { return "otp-fail:" + accountID }
func recoveryKey(accountID string) string    { return "recovery:" + accountID }
func sessionKey(tokenID string) string       { return "session:" + tokenID }

// CreateIdentity registers a new, unverified identity and returns its
// account id. An existing email yields common.ErrConflict.
func (s *Store) CreateIdentity(ctx context.Context, email, name string) (string, error) {
	id := models.Identity{
		AccountID: uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      name,
	}
	if err := s.identities.Create(ctx, id); err != nil {
		return "", err
	}
	return id.AccountID, nil
}

// FindIdentityByEmail returns the identity registered under email.
func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (models.Identity, error) {
	return s.identities.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// LookupIdentity returns the identity with the given account id.
func (s *Store) LookupIdentity(ctx context.Context, accountID string) (models.Identity, error) {
	return s.identities.FindByID(ctx, accountID)
}

// digest keys a secret to the server key and its account so stored values
// are useless without both.
func (s *Store) digest(accountID, secret string) string {
	mac := hmac.New(sha256.New, s.opts.SecretKey)
	mac.Write([]byte(accountID))
	mac.Write([]byte{0})
	mac.Write([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func equalDigest(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

func isMissing(err error) bool {
	return errors.Is(err, tokenstore.ErrNotFound) || errors.Is(err, common.ErrNotFound)
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
