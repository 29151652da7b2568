package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"moodlog/internal/consent"
	"moodlog/internal/share"
)

type ReportHandler struct {
	gate          *consent.Gate
	shares        *share.Service
	periodDays    int
	expiresInDays int
	log           *zap.SugaredLogger
}

func NewReportHandler(gate *consent.Gate, shares *share.Service, periodDays, expiresInDays int, log *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{gate: gate, shares: shares, periodDays: periodDays, expiresInDays: expiresInDays, log: log}
}

// GET /reports/consent
func (rh *ReportHandler) HandleConsentStatus(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleConsentStatus"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	status, err := rh.gate.Status(r.Context(), userID)
	if err != nil {
		rh.log.Errorw("couldn't load consent", "op", op, "user_id", userID, "error", err)
		writeError(w, rh.log, op, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, rh.log, op, http.StatusOK, status)
}

// POST /reports/consent {"consented": bool}
func (rh *ReportHandler) HandleSetConsent(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleSetConsent"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Consented *bool `json:"consented"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Consented == nil {
		writeError(w, rh.log, op, http.StatusBadRequest, "consented is required")
		return
	}

	rec, err := rh.gate.SetConsent(r.Context(), userID, *input.Consented)
	if err != nil {
		rh.log.Errorw("couldn't save consent", "op", op, "user_id", userID, "error", err)
		writeError(w, rh.log, op, http.StatusInternalServerError, "internal error")
		return
	}
	rh.log.Infow("consent updated", "op", op, "user_id", userID, "consented", rec.Consented)
	writeJSON(w, rh.log, op, http.StatusOK, consent.StatusOf(rec))
}

// POST /reports/weekly/share {"period_days"?: n, "expires_in_days"?: n}
func (rh *ReportHandler) HandleCreateShare(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleCreateShare"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	input := struct {
		PeriodDays    int `json:"period_days"`
		ExpiresInDays int `json:"expires_in_days"`
	}{rh.periodDays, rh.expiresInDays}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, rh.log, op, http.StatusBadRequest, "couldn't decode json")
		return
	}

	created, err := rh.shares.Create(r.Context(), userID, input.PeriodDays, input.ExpiresInDays)
	switch {
	case errors.Is(err, consent.ErrConsentRequired):
		writeError(w, rh.log, op, http.StatusForbidden, "consent required")
		return
	case errors.Is(err, share.ErrNoDataToShare):
		writeError(w, rh.log, op, http.StatusBadRequest, "no data to share")
		return
	case err != nil:
		rh.log.Errorw("couldn't create share", "op", op, "user_id", userID, "error", err)
		writeError(w, rh.log, op, http.StatusInternalServerError, "internal error")
		return
	}

	rh.log.Infow("share created", "op", op, "user_id", userID, "expires_at", created.ExpiresAt)
	writeJSON(w, rh.log, op, http.StatusCreated, created)
}

// GET /reports/shared/{token}. Unknown, revoked and expired tokens get the
// same response.
func (rh *ReportHandler) HandleReadShared(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleReadShared"

	snapshot, err := rh.shares.Read(r.Context(), r.PathValue("token"))
	switch {
	case errors.Is(err, share.ErrNotFound), errors.Is(err, share.ErrExpired):
		writeError(w, rh.log, op, http.StatusNotFound, "not found")
		return
	case err != nil:
		rh.log.Errorw("couldn't read share", "op", op, "error", err)
		writeError(w, rh.log, op, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, rh.log, op, http.StatusOK, snapshot)
}

// POST /reports/revoke/{token}
func (rh *ReportHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleRevoke"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	revoked, err := rh.shares.Revoke(r.Context(), userID, r.PathValue("token"))
	if err != nil {
		rh.log.Errorw("couldn't revoke share", "op", op, "user_id", userID, "error", err)
		writeError(w, rh.log, op, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusOK
	if !revoked {
		status = http.StatusNotFound
	}
	writeJSON(w, rh.log, op, status, map[string]bool{"revoked": revoked})
}

// GET /reports/list
func (rh *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleList"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := rh.shares.ListActive(r.Context(), userID)
	if err != nil {
		rh.log.Errorw("couldn't list shares", "op", op, "user_id", userID, "error", err)
		writeError(w, rh.log, op, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, rh.log, op, http.StatusOK, list)
}
