// Package classify turns entry text into a Classification, preferring an
// external source and falling back to keyword scoring when it is unavailable.
package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"moodlog/internal/models"
	"moodlog/internal/palette"
)

// ErrUnavailable marks a source failure. It is recovered locally and never
// returned from Service.Classify.
var ErrUnavailable = errors.New("classification unavailable")

// Result is what an external source reports for one entry.
type Result struct {
	PrimaryEmotion string  `json:"primary_emotion"`
	Intensity      int     `json:"intensity"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	ColorName      string  `json:"color_name,omitempty"`
	Summary        string  `json:"summary,omitempty"`
}

type Source interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

const DefaultTimeout = 8 * time.Second

type Service struct {
	source  Source
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewService builds a classifier. A nil source means fallback only.
func NewService(source Source, timeout time.Duration, log *zap.SugaredLogger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{source: source, timeout: timeout, log: log}
}

// Classify always returns a complete classification.
func (s *Service) Classify(ctx context.Context, text string) models.Classification {
	if s.source == nil {
		return Fallback(text)
	}

	res, err := s.callSource(ctx, text)
	if err == nil {
		c, convErr := fromResult(res)
		if convErr == nil {
			return c
		}
		err = convErr
	}

	s.log.Warnw("classifier source failed, using keyword fallback", "op", "classify.Classify", "error", err)
	return Fallback(text)
}

// callSource bounds the source call by the service timeout even when the
// source ignores its context.
func (s *Service) callSource(ctx context.Context, text string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type reply struct {
		res *Result
		err error
	}
	done := make(chan reply, 1)
	go func() {
		res, err := s.source.Classify(ctx, text)
		done <- reply{res, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
		}
		if r.res == nil {
			return nil, fmt.Errorf("%w: empty result", ErrUnavailable)
		}
		return r.res, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func fromResult(r *Result) (models.Classification, error) {
	emotion := strings.TrimSpace(r.PrimaryEmotion)
	if !palette.IsBaseEmotion(emotion) {
		return models.Classification{}, fmt.Errorf("%w: unknown emotion %q", ErrUnavailable, r.PrimaryEmotion)
	}
	intensity := palette.ClampIntensity(r.Intensity)
	confidence := r.Confidence
	if math.IsNaN(confidence) {
		confidence = 0
	}
	confidence = math.Max(0, math.Min(1, confidence))

	color := palette.ColorFor(emotion, intensity)
	if name := strings.TrimSpace(r.ColorName); name != "" {
		color.Name = name
	}

	summary := strings.TrimSpace(r.Summary)
	if summary == "" {
		summary = FallbackSummary(emotion)
	}

	return models.Classification{
		PrimaryEmotion: emotion,
		Intensity:      intensity,
		Confidence:     confidence,
		Reasoning:      r.Reasoning,
		Color:          color,
		Summary:        summary,
		AIUsed:         true,
	}, nil
}
