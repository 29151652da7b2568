package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"moodlog/internal/alerts"
)

type AlertHandler struct {
	svc *alerts.Service
	log *zap.SugaredLogger
}

func NewAlertHandler(svc *alerts.Service, log *zap.SugaredLogger) *AlertHandler {
	return &AlertHandler{svc: svc, log: log}
}

// GET /alerts/check
func (ah *AlertHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, ah.log, "handlers.HandleCheck", http.StatusOK, ah.svc.Check(r.Context(), userID))
}

// POST /alerts/ack
func (ah *AlertHandler) HandleAck(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleAck"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	at, err := ah.svc.Acknowledge(r.Context(), userID)
	if err != nil {
		ah.log.Errorw("couldn't acknowledge alert", "op", op, "user_id", userID, "error", err)
		writeError(w, ah.log, op, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, ah.log, op, http.StatusOK, map[string]any{"acknowledged_at": at})
}
