package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/NiketSingh147/StoreIt/internal/common"
	"github.com/NiketSingh147/StoreIt/internal/middleware"
	"github.com/NiketSingh147/StoreIt/internal/models"
	"github.com/NiketSingh147/StoreIt/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for multipart headers and boundaries on
// top of the largest accepted file.
const multipartOverhead = 1 << 20

// FileService defines the file operations used by FileHandler.
type FileService interface {
	List(ctx context.Context, caller models.Profile, q models.FileQuery) ([]models.File, error)
	Upload(ctx context.Context, caller models.Profile, name string, size int64, contentType string, body io.Reader) (models.File, error)
	Rename(ctx context.Context, caller models.Profile, id, name, extension string) (models.File, error)
	Delete(ctx context.Context, caller models.Profile, id string) error
	UpdateSharedWith(ctx context.Context, caller models.Profile, id string, emails []string) (models.File, error)
	DownloadURL(ctx context.Context, caller models.Profile, id string) (string, error)
	Usage(ctx context.Context, auth service.Authorization) models.StorageUsage
}

// FileHandler serves file administration. All methods except Usage run
// behind middleware.RequireCaller.
type FileHandler struct {
	Files    FileService
	Sessions SessionService
	Log      *zap.Logger

	MaxUploadBytes int64
}

func (h *FileHandler) caller(w http.ResponseWriter, r *http.Request) (models.Profile, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, r, h.Log, common.ErrNoActiveSession, true)
	}
	return caller, ok
}

type listResponse struct {
	Files []models.File `json:"files"`
	Total int           `json:"total"`
}

// List handles GET /api/files?types=&search=&sort=&limit=.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	q, err := parseFileQuery(r)
	if err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}

	files, err := h.Files.List(r.Context(), caller, q)
	if err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}
	if files == nil {
		files = []models.File{}
	}
	writeJSON(w, http.StatusOK, listResponse{Files: files, Total: len(files)})
}

func parseFileQuery(r *http.Request) (models.FileQuery, error) {
	v := r.URL.Query()
	q := models.FileQuery{Search: strings.TrimSpace(v.Get("search")), Sort: v.Get("sort")}

	if raw := v.Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, ok := models.ParseFileType(part)
			if !ok {
				return models.FileQuery{}, fmt.Errorf("%w: unknown file type %q", common.ErrValidation, part)
			}
			q.Types = append(q.Types, t)
		}
	}
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return models.FileQuery{}, fmt.Errorf("%w: invalid limit %q", common.ErrValidation, raw)
		}
		q.Limit = n
	}
	return q, nil
}

// Upload handles a multipart POST with the file in field "file".
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: multipart field \"file\" is required", common.ErrValidation)
		}
		writeError(w, r, h.Log, err, true)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f, err := h.Files.Upload(r.Context(), caller, header.Filename, header.Size, contentType, file)
	if err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

type renameRequest struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// Rename handles PATCH /api/files/{id}.
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}

	f, err := h.Files.Rename(r.Context(), caller, chi.URLParam(r, "id"), req.Name, req.Extension)
	if err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Delete handles DELETE /api/files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.Files.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type shareRequest struct {
	Emails []string `json:"emails"`
}

// UpdateSharedWith handles PUT /api/files/{id}/shared-with.
func (h *FileHandler) UpdateSharedWith(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req shareRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}

	f, err := h.Files.UpdateSharedWith(r.Context(), caller, chi.URLParam(r, "id"), req.Emails)
	if err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Download redirects to a presigned URL of the file's contents.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	u, err := h.Files.DownloadURL(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err, true)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// Usage returns the caller's storage usage; anonymous callers get zeroes.
func (h *FileHandler) Usage(w http.ResponseWriter, r *http.Request) {
	auth := h.Sessions.CurrentCaller(r.Context(), middleware.SessionToken(r))
	writeJSON(w, http.StatusOK, h.Files.Usage(r.Context(), auth))
}
