package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"moodlog/internal/auth"
	"moodlog/internal/logger"
)

type Handlers struct {
	Journal  *JournalHandler
	Alerts   *AlertHandler
	Reports  *ReportHandler
	Emotions *EmotionHandler
}

// NewRouter mounts every route. Only shared report reads, the color tables
// and the health check are public.
func NewRouter(h Handlers, issuer *auth.Issuer, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	private := func(f http.HandlerFunc) http.Handler { return issuer.Middleware(f) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, "handlers.healthz", http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("POST /entries", private(h.Journal.HandleCreateEntry))
	mux.Handle("GET /entries", private(h.Journal.HandleGetEntries))
	mux.Handle("GET /entries/count", private(h.Journal.HandleCount))
	mux.Handle("GET /entries/today/status", private(h.Journal.HandleTodayStatus))
	mux.Handle("GET /entries/statistics/{days}", private(h.Journal.HandleStatistics))
	mux.Handle("GET /entries/{id}", private(h.Journal.HandleGetEntry))
	mux.Handle("PUT /entries/{id}", private(h.Journal.HandleUpdateEntry))
	mux.Handle("DELETE /entries/{id}", private(h.Journal.HandleDeleteEntry))

	mux.HandleFunc("GET /emotions/colors", h.Emotions.HandleColors)
	mux.HandleFunc("GET /emotions/palette", h.Emotions.HandlePalette)
	mux.Handle("POST /emotions/classify", private(h.Emotions.HandleClassify))

	mux.Handle("GET /alerts/check", private(h.Alerts.HandleCheck))
	mux.Handle("POST /alerts/ack", private(h.Alerts.HandleAck))

	mux.Handle("GET /reports/weekly", private(h.Journal.HandleWeekly))
	mux.Handle("GET /reports/consent", private(h.Reports.HandleConsentStatus))
	mux.Handle("POST /reports/consent", private(h.Reports.HandleSetConsent))
	mux.Handle("POST /reports/weekly/share", private(h.Reports.HandleCreateShare))
	mux.HandleFunc("GET /reports/shared/{token}", h.Reports.HandleReadShared)
	mux.Handle("POST /reports/revoke/{token}", private(h.Reports.HandleRevoke))
	mux.Handle("GET /reports/list", private(h.Reports.HandleList))

	return logger.RequestLogger(log, withCORS(mux))
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
