package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// RecoveryService defines the password recovery operations.
type RecoveryService interface {
	InitiateRecovery(ctx context.Context, email string) error
	CheckOldPasswordWithSecret(ctx context.Context, accountID, secret, candidate string) (bool, error)
	CompleteRecovery(ctx context.Context, accountID, secret, newPassword string) error
}

// RecoveryHandler handles forgotten passwords.
type RecoveryHandler struct {
	Recovery RecoveryService
	Metrics  AuthRecorder
	Log      *zap.Logger
}

func (h *RecoveryHandler) record(flow string, err error) {
	if h.Metrics != nil {
		h.Metrics.AuthOutcome(flow, outcome(err))
	}
}

type recoveryRequest struct {
	Email string `json:"email"`
}

// Initiate mails a reset link. The reply is the same whether or not the
// email is registered.
func (h *RecoveryHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req recoveryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	err := h.Recovery.InitiateRecovery(r.Context(), req.Email)
	h.record("recovery_request", err)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type resetRequest struct {
	UserID   string `json:"userId"`
	Secret   string `json:"secret"`
	Password string `json:"password"`
}

// CheckOld reports whether the candidate equals the current password. It
// needs a valid reset secret.
func (h *RecoveryHandler) CheckOld(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	same, err := h.Recovery.CheckOldPasswordWithSecret(r.Context(), req.UserID, req.Secret, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"samePassword": same})
}

// Complete sets the new password and spends the reset secret.
func (h *RecoveryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	err := h.Recovery.CompleteRecovery(r.Context(), req.UserID, req.Secret, req.Password)
	h.record("recovery_complete", err)
	if err != nil {
		writeError(w, r, h.Log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
