package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are carried by session tokens.
type Claims struct {
	jwt.RegisteredClaims
	// Method is how the session was authenticated.
	Method string `json:"amr"`
}

func (s *Store) openSession(ctx context.Context, accountID, method string) (string, error) {
	now := s.now()
	tokenID := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.SessionTTL)),
		},
		Method: method,
	})
	signed, err := token.SignedString(s.opts.SecretKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	if err := s.tokens.Put(ctx, sessionKey(tokenID), accountID, s.opts.SessionTTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

func (s *Store) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.opts.SecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, common.ErrNoSession
	}
	return claims, nil
}

// ResolveSession returns the session a token stands for. Malformed, expired
// and revoked tokens yield common.ErrNoSession.
func (s *Store) ResolveSession(ctx context.Context, token string) (models.Session, error) {
	if strings.TrimSpace(token) == "" {
		return models.Session{}, common.ErrNoSession
	}
	claims, err := s.parse(token)
	if err != nil {
		return models.Session{}, err
	}
	owner, err := s.tokens.Get(ctx, sessionKey(claims.ID))
	if err != nil {
		if isMissing(err) {
			return models.Session{}, common.ErrNoSession
		}
		return models.Session{}, fmt.Errorf("resolve session: %w", err)
	}
	if owner != claims.Subject {
		return models.Session{}, common.ErrNoSession
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return models.Session{
		ID:        claims.ID,
		AccountID: claims.Subject,
		Method:    claims.Method,
		ExpiresAt: expires,
	}, nil
}

// PasswordLogin opens a password session. Unknown emails, accounts without
// a password and wrong passwords all yield common.ErrUnauthorized.
func (s *Store) PasswordLogin(ctx context.Context, email, password string) (string, error) {
	id, err := s.FindIdentityByEmail(ctx, email)
	if err != nil {
		if isMissing(err) {
			return "", common.ErrUnauthorized
		}
		return "", fmt.Errorf("password login: %w", err)
	}
	if !id.HasPassword() || !VerifyPassword(password, id.PasswordHash) {
		return "", common.ErrUnauthorized
	}
	return s.openSession(ctx, id.AccountID, models.AuthPassword)
}

// ChangePassword sets a new password for the session's account.
func (s *Store) ChangePassword(ctx context.Context, token, password string) error {
	sess, err := s.ResolveSession(ctx, token)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, sess.AccountID, password)
}

// InvalidateSession revokes the token. Revoking an unknown or already
// revoked token succeeds.
func (s *Store) InvalidateSession(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		if errors.Is(err, common.ErrNoSession) {
			return nil
		}
		return err
	}
	if err := s.tokens.Delete(ctx, sessionKey(claims.ID)); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

func (s *Store) setPassword(ctx context.Context, accountID, password string) error {
	hash, err := HashPassword(s.Argon2, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.identities.SetPasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}
