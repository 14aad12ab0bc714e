package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
)

// PostgresIdentityRepository stores credential-store identities.
type PostgresIdentityRepository struct {
	DB *sql.DB
}

// NewPostgresIdentityRepository creates a PostgresIdentityRepository.
func NewPostgresIdentityRepository(db *sql.DB) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{DB: db}
}

const identityColumns = `account_id, email, name, password_hash, verified, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (models.Identity, error) {
	var i models.Identity
	err := row.Scan(&i.AccountID, &i.Email, &i.Name, &i.PasswordHash, &i.Verified, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// Create inserts a new identity. A duplicate email yields common.ErrConflict.
func (r *PostgresIdentityRepository) Create(ctx context.Context, id models.Identity) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO identities (account_id, email, name) VALUES ($1, $2, $3)`,
		id.AccountID, id.Email, id.Name,
	)
	if err != nil {
		return fmt.Errorf("create identity: %w", classify(err))
	}
	return nil
}

// FindByEmail returns the identity registered under email.
func (r *PostgresIdentityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	i, err := scanIdentity(r.DB.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email))
	if err != nil {
		return models.Identity{}, fmt.Errorf("find identity by email: %w", classify(err))
	}
	return i, nil
}

// FindByID returns the identity with the given account id.
func (r *PostgresIdentityRepository) FindByID(ctx context.Context, accountID string) (models.Identity, error) {
	i, err := scanIdentity(r.DB.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE account_id = $1`, accountID))
	if err != nil {
		return models.Identity{}, fmt.Errorf("find identity: %w", classify(err))
	}
	return i, nil
}

// MarkVerified records that the account consumed a challenge.
func (r *PostgresIdentityRepository) MarkVerified(ctx context.Context, accountID string) error {
	return r.update(ctx, "mark verified",
		`UPDATE identities SET verified = true, updated_at = now() WHERE account_id = $1`, accountID)
}

// SetPasswordHash replaces the stored password hash.
func (r *PostgresIdentityRepository) SetPasswordHash(ctx context.Context, accountID, hash string) error {
	return r.update(ctx, "set password",
		`UPDATE identities SET password_hash = $2, updated_at = now() WHERE account_id = $1`, accountID, hash)
}

func (r *PostgresIdentityRepository) update(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return nil
}
