package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"moodlog/internal/journal"
)

type JournalHandler struct {
	svc *journal.Service
	log *zap.SugaredLogger
}

func NewJournalHandler(svc *journal.Service, log *zap.SugaredLogger) *JournalHandler {
	return &JournalHandler{svc: svc, log: log}
}

// POST /entries
func (jh *JournalHandler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleCreateEntry"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, jh.log, op, http.StatusBadRequest, "couldn't decode json")
		return
	}

	entry, err := jh.svc.Submit(r.Context(), userID, input.Text)
	switch {
	case errors.Is(err, journal.ErrEmptyEntry):
		writeError(w, jh.log, op, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, journal.ErrAlreadySubmitted):
		writeError(w, jh.log, op, http.StatusConflict, err.Error())
		return
	case err != nil:
		jh.log.Errorw("couldn't create entry", "op", op, "user_id", userID, "error", err)
		writeError(w, jh.log, op, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, jh.log, op, http.StatusCreated, map[string]any{
		"status": "created",
		"data":   entry,
	})
}

// GET /entries?limit=n
func (jh *JournalHandler) HandleGetEntries(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleGetEntries"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit := journal.DefaultLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = l
	}

	entries, err := jh.svc.List(r.Context(), userID, limit)
	if err != nil {
		jh.log.Errorw("couldn't get entries", "op", op, "user_id", userID, "error", err)
		writeError(w, jh.log, op, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, jh.log, op, http.StatusOK, map[string]any{
		"status": "success",
		"data":   entries,
	})
}

// GET /reports/weekly
func (jh *JournalHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleWeekly"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	weekly, err := jh.svc.Weekly(r.Context(), userID)
	if err != nil {
		jh.log.Errorw("couldn't build weekly report", "op", op, "user_id", userID, "error", err)
		writeError(w, jh.log, op, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, weekly)
}

func (jh *JournalHandler) entryError(w http.ResponseWriter, op string, userID int64, err error) {
	switch {
	case errors.Is(err, journal.ErrEntryNotFound):
		writeError(w, jh.log, op, http.StatusNotFound, err.Error())
	case errors.Is(err, journal.ErrEmptyEntry):
		writeError(w, jh.log, op, http.StatusBadRequest, err.Error())
	default:
		jh.log.Errorw("entry operation failed", "op", op, "user_id", userID, "error", err)
		writeError(w, jh.log, op, http.StatusInternalServerError, "internal error")
	}
}

// GET /entries/{id}
func (jh *JournalHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleGetEntry"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	entry, err := jh.svc.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		jh.entryError(w, op, userID, err)
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, map[string]any{
		"status": "success",
		"data":   entry,
	})
}

// PUT /entries/{id}
func (jh *JournalHandler) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleUpdateEntry"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, jh.log, op, http.StatusBadRequest, "couldn't decode json")
		return
	}

	entry, err := jh.svc.Update(r.Context(), userID, r.PathValue("id"), input.Text)
	if err != nil {
		jh.entryError(w, op, userID, err)
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, map[string]any{
		"status": "updated",
		"data":   entry,
	})
}

// DELETE /entries/{id}
func (jh *JournalHandler) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleDeleteEntry"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := jh.svc.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		jh.entryError(w, op, userID, err)
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /entries/count
func (jh *JournalHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleCount"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	n, err := jh.svc.Count(r.Context(), userID)
	if err != nil {
		jh.entryError(w, op, userID, err)
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, map[string]int{"count": n})
}

// GET /entries/today/status
func (jh *JournalHandler) HandleTodayStatus(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleTodayStatus"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	status, err := jh.svc.Today(r.Context(), userID)
	if err != nil {
		jh.entryError(w, op, userID, err)
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, status)
}

// GET /entries/statistics/{days}
func (jh *JournalHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleStatistics"
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	days, err := strconv.Atoi(r.PathValue("days"))
	if err != nil {
		writeError(w, jh.log, op, http.StatusBadRequest, journal.ErrInvalidPeriod.Error())
		return
	}

	stats, err := jh.svc.Statistics(r.Context(), userID, days)
	if errors.Is(err, journal.ErrInvalidPeriod) {
		writeError(w, jh.log, op, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		jh.entryError(w, op, userID, err)
		return
	}
	writeJSON(w, jh.log, op, http.StatusOK, stats)
}
