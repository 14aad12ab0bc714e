package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/mail"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileOptions are the limits and links of the file workflows.
type FileOptions struct {
	QuotaBytes     int64
	MaxUploadBytes int64
	// AppURL is the public base URL used for file links.
	AppURL string
}

// FileService implements owner-scoped file administration.
type FileService struct {
	files  FileStore
	blobs  BlobStore
	mailer Mailer
	opts   FileOptions
	log    *zap.Logger
}

// NewFileService creates a FileService.
func NewFileService(files FileStore, blobs BlobStore, mailer Mailer, opts FileOptions, log *zap.Logger) *FileService {
	return &FileService{files: files, blobs: blobs, mailer: mailer, opts: opts, log: log}
}

func (s *FileService) fileURL(id string) string {
	return s.opts.AppURL + "/api/files/" + id + "/download"
}

// List returns the files caller owns or that are shared with them.
func (s *FileService) List(ctx context.Context, caller models.Profile, q models.FileQuery) ([]models.File, error) {
	if q.Sort == "" {
		q.Sort = models.DefaultSort
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	files, err := s.files.List(ctx, caller.ID, caller.Email, q)
	if err != nil {
		return nil, common.Upstream(err)
	}
	return files, nil
}

// Upload stores body as a new file owned by caller. The blob is written
// first; if the metadata cannot be created the blob is deleted again.
func (s *FileService) Upload(ctx context.Context, caller models.Profile, name string, size int64, contentType string, body io.Reader) (models.File, error) {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		return models.File{}, fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if size <= 0 {
		return models.File{}, fmt.Errorf("%w: file is empty", common.ErrValidation)
	}
	if size > s.opts.MaxUploadBytes {
		return models.File{}, fmt.Errorf("%w: file exceeds %d bytes", common.ErrFileTooLarge, s.opts.MaxUploadBytes)
	}
	if err := s.checkQuota(ctx, caller, size); err != nil {
		return models.File{}, err
	}

	key, err := s.blobs.PutBlob(ctx, name, contentType, size, body)
	if err != nil {
		return models.File{}, common.Upstream(fmt.Errorf("store blob: %w", err))
	}

	fileType, ext := models.Classify(name)
	id := uuid.NewString()
	f, err := s.files.Create(ctx, models.File{
		ID:         id,
		Name:       name,
		Extension:  ext,
		Size:       size,
		Type:       fileType,
		URL:        s.fileURL(id),
		OwnerID:    caller.ID,
		AccountID:  caller.AccountID,
		SharedWith: []string{},
		BlobID:     key,
	})
	if err != nil {
		err = fmt.Errorf("create file metadata: %w", err)
		// a fresh context so a canceled request still cleans up
		if derr := s.blobs.DeleteBlob(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Error("orphaned blob after failed upload", zap.String("blob_id", key), zap.Error(derr))
			err = errors.Join(err, fmt.Errorf("delete blob: %w", derr))
		}
		return models.File{}, common.Upstream(err)
	}
	return f, nil
}

func (s *FileService) checkQuota(ctx context.Context, caller models.Profile, size int64) error {
	if s.opts.QuotaBytes <= 0 {
		return nil
	}
	owned, err := s.files.ListOwned(ctx, caller.ID)
	if err != nil {
		return common.Upstream(fmt.Errorf("compute usage: %w", err))
	}
	var used int64
	for _, f := range owned {
		used += f.Size
	}
	if used+size > s.opts.QuotaBytes {
		return common.ErrQuotaExceeded
	}
	return nil
}

// getForWrite loads a file the caller must own. Files the caller cannot
// even read are reported as missing.
func (s *FileService) getForWrite(ctx context.Context, caller models.Profile, id string) (models.File, error) {
	f, err := s.getForRead(ctx, caller, id)
	if err != nil {
		return models.File{}, err
	}
	if !CanMutate(caller, f) {
		return models.File{}, common.ErrForbidden
	}
	return f, nil
}

func (s *FileService) getForRead(ctx context.Context, caller models.Profile, id string) (models.File, error) {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.File{}, common.ErrNotFound
		}
		return models.File{}, common.Upstream(err)
	}
	if !CanRead(caller, f) {
		return models.File{}, common.ErrNotFound
	}
	return f, nil
}

// Rename gives the file the name "<name>.<extension>".
func (s *FileService) Rename(ctx context.Context, caller models.Profile, id, name, extension string) (models.File, error) {
	name = strings.TrimSpace(name)
	extension = strings.TrimPrefix(strings.TrimSpace(extension), ".")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return models.File{}, fmt.Errorf("%w: invalid file name", common.ErrValidation)
	}
	if _, err := s.getForWrite(ctx, caller, id); err != nil {
		return models.File{}, err
	}

	newName := name
	if extension != "" {
		newName = name + "." + extension
	}
	f, err := s.files.Rename(ctx, id, newName)
	if err != nil {
		return models.File{}, common.Upstream(err)
	}
	return f, nil
}

// Delete removes the file's metadata and then its blob. A blob that cannot
// be deleted is logged and left behind.
func (s *FileService) Delete(ctx context.Context, caller models.Profile, id string) error {
	f, err := s.getForWrite(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return common.Upstream(err)
	}
	if err := s.blobs.DeleteBlob(ctx, f.BlobID); err != nil {
		s.log.Error("orphaned blob after delete", zap.String("file_id", id), zap.String("blob_id", f.BlobID), zap.Error(err))
	}
	return nil
}

// UpdateSharedWith replaces the file's recipients with emails and notifies
// the newly added ones.
func (s *FileService) UpdateSharedWith(ctx context.Context, caller models.Profile, id string, emails []string) (models.File, error) {
	recipients, err := normalizeRecipients(emails, caller.Email)
	if err != nil {
		return models.File{}, err
	}
	before, err := s.getForWrite(ctx, caller, id)
	if err != nil {
		return models.File{}, err
	}

	f, err := s.files.SetSharedWith(ctx, id, recipients)
	if err != nil {
		return models.File{}, common.Upstream(err)
	}

	s.notifyRecipients(ctx, caller, f, added(before.SharedWith, recipients))
	return f, nil
}

func (s *FileService) notifyRecipients(ctx context.Context, sender models.Profile, f models.File, to []string) {
	for _, email := range to {
		msg, err := mail.ShareMessage(email, mail.ShareNotice{
			SenderName:  sender.FullName,
			SenderEmail: sender.Email,
			FileName:    f.Name,
			Link:        s.fileURL(f.ID),
		})
		if err == nil {
			err = s.mailer.Send(ctx, msg)
		}
		if err != nil {
			s.log.Warn("share notification failed", zap.String("file_id", f.ID), zap.String("to", email), zap.Error(err))
		}
	}
}

// normalizeRecipients trims, lower-cases, validates and dedupes emails,
// keeping first-seen order and dropping the owner's own address.
func normalizeRecipients(emails []string, ownerEmail string) ([]string, error) {
	owner := strings.ToLower(strings.TrimSpace(ownerEmail))
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	var invalid []string
	for _, raw := range emails {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		e, err := NormalizeEmail(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		if e == owner {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: invalid emails: %s", common.ErrValidation, strings.Join(invalid, ", "))
	}
	return out, nil
}

func added(before, after []string) []string {
	old := make(map[string]struct{}, len(before))
	for _, e := range before {
		old[strings.ToLower(e)] = struct{}{}
	}
	var out []string
	for _, e := range after {
		if _, ok := old[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// DownloadURL returns a time-limited link to the file's contents.
func (s *FileService) DownloadURL(ctx context.Context, caller models.Profile, id string) (string, error) {
	f, err := s.getForRead(ctx, caller, id)
	if err != nil {
		return "", err
	}
	u, err := s.blobs.PresignGet(ctx, f.BlobID, f.Name)
	if err != nil {
		return "", common.Upstream(err)
	}
	return u, nil
}

// Usage aggregates the caller's owned files per type. Anonymous callers and
// failures yield zero usage.
func (s *FileService) Usage(ctx context.Context, auth Authorization) models.StorageUsage {
	usage := models.StorageUsage{All: s.opts.QuotaBytes}
	caller, ok := auth.Caller()
	if !ok {
		return usage
	}
	owned, err := s.files.ListOwned(ctx, caller.ID)
	if err != nil {
		s.log.Warn("usage: list owned files failed", zap.String("profile_id", caller.ID), zap.Error(err))
		return usage
	}
	for _, f := range owned {
		usage.Add(f)
	}
	return usage
}
