package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const deleteAbandonedSignups = `
DELETE FROM identities i
 WHERE i.verified = false
   AND i.created_at < $1
   AND NOT EXISTS (SELECT 1 FROM files f WHERE f.account_id = i.account_id)`

// CleanAbandonedSignups removes identities that never consumed a challenge,
// were created before cutoff and own no files. Their profiles go with them
// through the foreign key cascade.
func CleanAbandonedSignups(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, deleteAbandonedSignups, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartSignupCleaner runs CleanAbandonedSignups every interval until ctx is done.
func StartSignupCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rows, err := CleanAbandonedSignups(ctx, db, time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean abandoned sign-ups", zap.Error(err))
					continue
				}
				if rows > 0 {
					log.Info("cleaned abandoned sign-ups", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
