package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/lib/pq"
)

// PostgresFileRepository stores file metadata.
type PostgresFileRepository struct {
	DB *sql.DB
}

// NewPostgresFileRepository creates a PostgresFileRepository.
func NewPostgresFileRepository(db *sql.DB) *PostgresFileRepository {
	return &PostgresFileRepository{DB: db}
}

const fileColumns = `f.id, f.name, f.extension, f.size, f.type, f.url, f.owner_id, f.account_id,
	f.shared_with, f.blob_id, f.created_at, f.updated_at`

// sortColumns whitelists the sortable fields.
var sortColumns = map[string]string{
	"createdAt": "f.created_at",
	"name":      "f.name",
	"size":      "f.size",
}

func scanFile(row interface{ Scan(...any) error }, extra ...any) (models.File, error) {
	var f models.File
	var shared pq.StringArray
	dest := append([]any{&f.ID, &f.Name, &f.Extension, &f.Size, &f.Type, &f.URL, &f.OwnerID, &f.AccountID,
		&shared, &f.BlobID, &f.CreatedAt, &f.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.File{}, err
	}
	f.SharedWith = []string(shared)
	if f.SharedWith == nil {
		f.SharedWith = []string{}
	}
	return f, nil
}

// Create inserts file metadata and returns the stored row.
func (r *PostgresFileRepository) Create(ctx context.Context, f models.File) (models.File, error) {
	shared := f.SharedWith
	if shared == nil {
		shared = []string{}
	}
	stored, err := scanFile(r.DB.QueryRowContext(ctx, `
		INSERT INTO files AS f (id, name, extension, size, type, url, owner_id, account_id, shared_with, blob_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+fileColumns,
		f.ID, f.Name, f.Extension, f.Size, f.Type, f.URL, f.OwnerID, f.AccountID, pq.Array(shared), f.BlobID,
	))
	if err != nil {
		return models.File{}, fmt.Errorf("create file: %w", classify(err))
	}
	return stored, nil
}

// Get returns the file with the given id.
func (r *PostgresFileRepository) Get(ctx context.Context, id string) (models.File, error) {
	f, err := scanFile(r.DB.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files f WHERE f.id = $1`, id))
	if err != nil {
		return models.File{}, fmt.Errorf("get file: %w", classify(err))
	}
	return f, nil
}

// List returns the files owned by ownerID or shared with email, filtered and
// ordered by q. Owner info is resolved with a join; a missing owner profile
// yields models.UnknownOwner.
func (r *PostgresFileRepository) List(ctx context.Context, ownerID, email string, q models.FileQuery) ([]models.File, error) {
	var sb strings.Builder
	args := []any{ownerID, email}

	sb.WriteString(`SELECT ` + fileColumns + `, p.id, p.full_name, p.email, p.avatar
		FROM files f LEFT JOIN profiles p ON p.id = f.owner_id
		WHERE (f.owner_id = $1 OR $2 = ANY(f.shared_with))`)

	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		fmt.Fprintf(&sb, ` AND f.type = ANY($%d)`, len(args))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		fmt.Fprintf(&sb, ` AND f.name ILIKE $%d`, len(args))
	}

	column, dir := orderBy(q.Sort)
	fmt.Fprintf(&sb, ` ORDER BY %s %s, f.id`, column, dir)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		var pid, name, mail, avatar sql.NullString
		f, err := scanFile(rows, &pid, &name, &mail, &avatar)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		owner := models.UnknownOwner
		if pid.Valid {
			owner = models.OwnerInfo{ID: pid.String, FullName: name.String, Email: mail.String, Avatar: avatar.String}
		}
		f.Owner = &owner
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// ListOwned returns every file owned by ownerID.
func (r *PostgresFileRepository) ListOwned(ctx context.Context, ownerID string) ([]models.File, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+fileColumns+` FROM files f WHERE f.owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned files: %w", err)
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Rename sets the file's name.
func (r *PostgresFileRepository) Rename(ctx context.Context, id, name string) (models.File, error) {
	f, err := scanFile(r.DB.QueryRowContext(ctx, `
		UPDATE files AS f SET name = $2, updated_at = now() WHERE f.id = $1
		RETURNING `+fileColumns, id, name))
	if err != nil {
		return models.File{}, fmt.Errorf("rename file: %w", classify(err))
	}
	return f, nil
}

// SetSharedWith replaces the file's recipient list in a single write.
func (r *PostgresFileRepository) SetSharedWith(ctx context.Context, id string, emails []string) (models.File, error) {
	if emails == nil {
		emails = []string{}
	}
	f, err := scanFile(r.DB.QueryRowContext(ctx, `
		UPDATE files AS f SET shared_with = $2, updated_at = now() WHERE f.id = $1
		RETURNING `+fileColumns, id, pq.Array(emails)))
	if err != nil {
		return models.File{}, fmt.Errorf("update shared-with: %w", classify(err))
	}
	return f, nil
}

// Delete removes the file's metadata.
func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete file: %w", common.ErrNotFound)
	}
	return nil
}

func orderBy(sort string) (string, string) {
	field, dir, ok := strings.Cut(sort, "-")
	column, known := sortColumns[field]
	if !ok || !known || (dir != "asc" && dir != "desc") {
		return sortColumns["createdAt"], "DESC"
	}
	return column, strings.ToUpper(dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
