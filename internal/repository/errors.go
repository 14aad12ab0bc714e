// Package repository provides PostgreSQL persistence for identities,
// profiles and file metadata.
package repository

import (
	"database/sql"
	"errors"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// classify maps driver errors onto the shared error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Join(common.ErrConflict, err)
	}
	return err
}
