package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"moodlog/internal/models"
	"moodlog/internal/palette"
)

type Classifier interface {
	Classify(ctx context.Context, text string) models.Classification
}

type EmotionHandler struct {
	classifier Classifier
	log        *zap.SugaredLogger
}

func NewEmotionHandler(classifier Classifier, log *zap.SugaredLogger) *EmotionHandler {
	return &EmotionHandler{classifier: classifier, log: log}
}

// GET /emotions/colors
func (eh *EmotionHandler) HandleColors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, eh.log, "handlers.HandleColors", http.StatusOK, palette.BaseColors())
}

// GET /emotions/palette?intensity=n
func (eh *EmotionHandler) HandlePalette(w http.ResponseWriter, r *http.Request) {
	intensity := palette.DefaultIntensity
	if n, err := strconv.Atoi(r.URL.Query().Get("intensity")); err == nil {
		intensity = n
	}

	p := palette.BuildExtendedPalette(intensity)
	out := make([]map[string]any, 0, len(p))
	for _, e := range p {
		out = append(out, map[string]any{"label": e.Label, "color": e.Color})
	}
	writeJSON(w, eh.log, "handlers.HandlePalette", http.StatusOK, out)
}

// POST /emotions/classify previews a classification without storing anything.
func (eh *EmotionHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	op := "handlers.HandleClassify"

	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || strings.TrimSpace(input.Text) == "" {
		writeError(w, eh.log, op, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, eh.log, op, http.StatusOK, eh.classifier.Classify(r.Context(), input.Text))
}
