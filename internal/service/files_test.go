package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	bob = models.Profile{ID: "prof-bob", AccountID: "acct-bob", FullName: "Bob", Email: "bob@example.com"}
	eve = models.Profile{ID: "prof-eve", AccountID: "acct-eve", FullName: "Eve", Email: "eve@example.com"}
)

type fileFixture struct {
	files  *memFiles
	blobs  *memBlobs
	outbox *outbox
	svc    *FileService
	logs   *observer.ObservedLogs
}

func newFileFixture(files ...models.File) *fileFixture {
	core, logs := observer.New(zapcore.InfoLevel)
	f := &fileFixture{files: newMemFiles(files...), blobs: newMemBlobs(), outbox: &outbox{}, logs: logs}
	f.svc = NewFileService(f.files, f.blobs, f.outbox, FileOptions{
		QuotaBytes:     1000,
		MaxUploadBytes: 500,
		AppURL:         "https://storeit.example",
	}, zap.New(core))
	return f
}

func adaFile() models.File {
	return models.File{ID: "f1", Name: "report.pdf", Size: 100, Type: models.TypeDocument, OwnerID: ada.ID, SharedWith: []string{"bob@example.com"}, BlobID: "blob-f1"}
}

func TestUpload(t *testing.T) {
	f := newFileFixture()

	got, err := f.svc.Upload(context.Background(), ada, `C:\Users\ada\photo.PNG`, 5, "image/png", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "photo.PNG", got.Name)
	assert.Equal(t, models.TypeImage, got.Type)
	assert.Equal(t, "png", got.Extension)
	assert.Equal(t, ada.ID, got.OwnerID)
	assert.Equal(t, ada.AccountID, got.AccountID)
	assert.Empty(t, got.SharedWith)
	assert.Equal(t, "https://storeit.example/api/files/"+got.ID+"/download", got.URL)
	assert.Equal(t, 1, f.blobs.count())
}

func TestUpload_CompensatesFailedMetadata(t *testing.T) {
	f := newFileFixture()
	f.files.createErr = errors.New("insert failed")

	_, err := f.svc.Upload(context.Background(), ada, "notes.txt", 5, "text/plain", strings.NewReader("hello"))
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
	assert.Zero(t, f.blobs.count(), "blob must not outlive failed metadata")
}

func TestUpload_ReportsOrphanedBlob(t *testing.T) {
	f := newFileFixture()
	f.files.createErr = errors.New("insert failed")
	f.blobs.deleteErr = errors.New("s3 down")

	_, err := f.svc.Upload(context.Background(), ada, "notes.txt", 5, "text/plain", strings.NewReader("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 down")
	assert.Equal(t, 1, f.logs.FilterMessage("orphaned blob after failed upload").Len())
}

func TestUpload_Rejects(t *testing.T) {
	f := newFileFixture(models.File{ID: "big", OwnerID: ada.ID, Size: 900})

	_, err := f.svc.Upload(context.Background(), ada, "", 5, "", strings.NewReader("hello"))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.Upload(context.Background(), ada, "a.txt", 0, "", strings.NewReader(""))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.Upload(context.Background(), ada, "a.txt", 501, "", strings.NewReader(""))
	assert.ErrorIs(t, err, common.ErrFileTooLarge)
	assert.NotErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.Upload(context.Background(), ada, "a.txt", 200, "", strings.NewReader(strings.Repeat("x", 200)))
	assert.ErrorIs(t, err, common.ErrQuotaExceeded)

	_, err = f.svc.Upload(context.Background(), bob, "a.txt", 200, "", strings.NewReader(strings.Repeat("x", 200)))
	assert.NoError(t, err, "quota is per owner")
	assert.Equal(t, 1, f.blobs.count())
}

func TestList_Visibility(t *testing.T) {
	f := newFileFixture(
		adaFile(),
		models.File{ID: "f2", Name: "private.txt", OwnerID: ada.ID},
		models.File{ID: "f3", Name: "bob.txt", OwnerID: bob.ID},
	)

	ids := func(files []models.File) []string {
		var out []string
		for _, f := range files {
			out = append(out, f.ID)
		}
		return out
	}

	got, err := f.svc.List(context.Background(), ada, models.FileQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, ids(got))

	got, err = f.svc.List(context.Background(), bob, models.FileQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f3"}, ids(got))

	got, err = f.svc.List(context.Background(), eve, models.FileQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRename(t *testing.T) {
	f := newFileFixture(adaFile())

	got, err := f.svc.Rename(context.Background(), ada, "f1", "summary", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, "summary.pdf", got.Name)

	_, err = f.svc.Rename(context.Background(), bob, "f1", "mine", "pdf")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.svc.Rename(context.Background(), eve, "f1", "mine", "pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.svc.Rename(context.Background(), ada, "f1", "../etc", "pdf")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.Rename(context.Background(), ada, "missing", "x", "pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFileFixture(adaFile())
	f.blobs.blobs["blob-f1"] = []byte("data")

	assert.ErrorIs(t, f.svc.Delete(context.Background(), bob, "f1"), common.ErrForbidden)
	require.NoError(t, f.svc.Delete(context.Background(), ada, "f1"))

	_, err := f.files.Get(context.Background(), "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, f.blobs.count())
}

func TestDelete_BlobFailureKeepsMetadataRemoval(t *testing.T) {
	f := newFileFixture(adaFile())
	f.blobs.deleteErr = errors.New("s3 down")

	require.NoError(t, f.svc.Delete(context.Background(), ada, "f1"))
	_, err := f.files.Get(context.Background(), "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 1, f.logs.FilterMessage("orphaned blob after delete").Len())
}

func TestDelete_MetadataFailureKeepsBlob(t *testing.T) {
	f := newFileFixture(adaFile())
	f.blobs.blobs["blob-f1"] = []byte("data")
	f.files.deleteErr = errors.New("db down")

	assert.ErrorIs(t, f.svc.Delete(context.Background(), ada, "f1"), common.ErrUpstreamUnavailable)
	assert.Equal(t, 1, f.blobs.count())
}

func TestUpdateSharedWith(t *testing.T) {
	f := newFileFixture(adaFile())

	got, err := f.svc.UpdateSharedWith(context.Background(), ada, "f1",
		[]string{" Carol@Example.com", "bob@example.com", "carol@example.com", "ADA@example.com", ""})
	require.NoError(t, err)

	assert.Equal(t, []string{"carol@example.com", "bob@example.com"}, got.SharedWith)
	assert.Equal(t, []string{"carol@example.com"}, f.outbox.recipients(), "only new recipients are notified")

	f.outbox.mu.Lock()
	msg := f.outbox.sent[0]
	f.outbox.mu.Unlock()
	assert.Contains(t, msg.Text, "report.pdf")
	assert.Contains(t, msg.Text, "https://storeit.example/api/files/f1/download")
}

func TestUpdateSharedWith_Rejects(t *testing.T) {
	f := newFileFixture(adaFile())

	_, err := f.svc.UpdateSharedWith(context.Background(), ada, "f1", []string{"ok@example.com", "broken"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.UpdateSharedWith(context.Background(), bob, "f1", []string{"eve@example.com"})
	assert.ErrorIs(t, err, common.ErrForbidden)

	stored, err := f.files.Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com"}, stored.SharedWith)
	assert.Empty(t, f.outbox.recipients())
}

func TestUpdateSharedWith_MailFailureIsLogged(t *testing.T) {
	f := newFileFixture(adaFile())
	f.outbox.err = errors.New("smtp down")

	got, err := f.svc.UpdateSharedWith(context.Background(), ada, "f1", []string{"carol@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol@example.com"}, got.SharedWith)
	assert.Equal(t, 1, f.logs.FilterMessage("share notification failed").Len())
}

func TestDownloadURL(t *testing.T) {
	f := newFileFixture(adaFile())

	u, err := f.svc.DownloadURL(context.Background(), bob, "f1")
	require.NoError(t, err)
	assert.Contains(t, u, "blob-f1")

	_, err = f.svc.DownloadURL(context.Background(), eve, "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUsage(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	f := newFileFixture(
		models.File{ID: "a", OwnerID: ada.ID, Type: models.TypeImage, Size: 10, UpdatedAt: older},
		models.File{ID: "b", OwnerID: ada.ID, Type: models.TypeImage, Size: 5, UpdatedAt: newer},
		models.File{ID: "c", OwnerID: ada.ID, Type: models.TypeVideo, Size: 7, UpdatedAt: older},
		models.File{ID: "d", OwnerID: bob.ID, Type: models.TypeAudio, Size: 99, SharedWith: []string{ada.Email}},
	)

	u := f.svc.Usage(context.Background(), Authorized(ada))
	assert.Equal(t, int64(15), u.Image.Size)
	require.NotNil(t, u.Image.LatestDate)
	assert.Equal(t, newer, *u.Image.LatestDate)
	assert.Equal(t, int64(7), u.Video.Size)
	assert.Zero(t, u.Audio.Size, "shared files do not count")
	assert.Equal(t, int64(22), u.Used)
	assert.Equal(t, int64(1000), u.All)

	anon := f.svc.Usage(context.Background(), Unauthenticated)
	assert.Zero(t, anon.Used)
	assert.Equal(t, int64(1000), anon.All)

	f.files.listErr = errors.New("db down")
	failed := f.svc.Usage(context.Background(), Authorized(ada))
	assert.Zero(t, failed.Used)
}
