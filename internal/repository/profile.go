package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/models"
)

// PostgresProfileRepository stores application profiles.
type PostgresProfileRepository struct {
	DB *sql.DB
}

// NewPostgresProfileRepository creates a PostgresProfileRepository.
func NewPostgresProfileRepository(db *sql.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{DB: db}
}

const profileColumns = `id, account_id, full_name, email, avatar, created_at`

func scanProfile(row interface{ Scan(...any) error }) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.AccountID, &p.FullName, &p.Email, &p.Avatar, &p.CreatedAt)
	return p, err
}

// Create inserts p unless a profile with the same email exists, and returns
// the stored row in either case.
func (r *PostgresProfileRepository) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	stored, err := scanProfile(r.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (id, account_id, full_name, email, avatar)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING `+profileColumns,
		p.ID, p.AccountID, p.FullName, p.Email, p.Avatar,
	))
	if err != nil {
		return models.Profile{}, fmt.Errorf("create profile: %w", classify(err))
	}
	return stored, nil
}

// FindByEmail returns the profile registered under email.
func (r *PostgresProfileRepository) FindByEmail(ctx context.Context, email string) (models.Profile, error) {
	return r.findOne(ctx, "email", email)
}

// FindByAccountID returns the profile linked to the given identity.
func (r *PostgresProfileRepository) FindByAccountID(ctx context.Context, accountID string) (models.Profile, error) {
	return r.findOne(ctx, "account_id", accountID)
}

// column is always one of the fixed names above.
func (r *PostgresProfileRepository) findOne(ctx context.Context, column, value string) (models.Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE `+column+` = $1`, value))
	if err != nil {
		return models.Profile{}, fmt.Errorf("find profile by %s: %w", column, classify(err))
	}
	return p, nil
}
