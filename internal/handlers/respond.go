package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"moodlog/internal/auth"
)

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, op string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("failed to encode response", "op", op, "error", err)
	}
}

func writeError(w http.ResponseWriter, log *zap.SugaredLogger, op string, status int, message string) {
	writeJSON(w, log, op, status, map[string]string{"error": message})
}

// currentUser is only reached behind auth.Middleware; a missing id means the
// route was wired without it.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}
