// Package alerts decides whether to surface a check-in prompt after a run of
// negative days, with a 7 day cooldown after each acknowledgement.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moodlog/internal/aggregate"
	"moodlog/internal/clock"
	"moodlog/internal/models"
	"moodlog/internal/storage"
)

const (
	SuppressionWindow = 7 * 24 * time.Hour

	minItemsForCount = 7
	minNegativeDays  = 5
	ratioThreshold   = 0.6

	Message = "최근 오래도록 힘든 감정이 이어졌어요. 잠깐 숨 고르며 마음을 돌보는 시간이 필요할지 몰라요."
)

type State string

const (
	StateSuppressed State = "SUPPRESSED"
	StateEligible   State = "ELIGIBLE"
)

type Result struct {
	ShouldAlert   bool    `json:"should_alert"`
	Suppressed    bool    `json:"suppressed,omitempty"`
	Period        int     `json:"period,omitempty"`
	NegativeRatio float64 `json:"negative_ratio,omitempty"`
	DaysNegative  int     `json:"days_negative,omitempty"`
	Message       string  `json:"message,omitempty"`
	FormURL       string  `json:"form_url,omitempty"`
}

func (r Result) State() State {
	if r.Suppressed {
		return StateSuppressed
	}
	return StateEligible
}

// Evaluate is the pure decision over a stored window. Unparseable items are
// dropped before counting and an empty window never alerts.
func Evaluate(row *models.WeeklyAggregate, state *models.AlertState, now time.Time) Result {
	if state != nil && state.LastMindCheckAt != nil && now.Sub(*state.LastMindCheckAt) < SuppressionWindow {
		return Result{ShouldAlert: false, Suppressed: true}
	}
	if row == nil {
		return Result{}
	}

	items := aggregate.Normalize(row.Items)
	if len(items) == 0 {
		return Result{}
	}

	negativeDays := aggregate.CountNegative(items)
	ratio := float64(negativeDays) / float64(len(items))

	return Result{
		ShouldAlert:   (len(items) >= minItemsForCount && negativeDays >= minNegativeDays) || ratio >= ratioThreshold,
		Period:        row.PeriodDays,
		NegativeRatio: aggregate.Round3(ratio),
		DaysNegative:  negativeDays,
		Message:       Message,
	}
}

type Service struct {
	store      storage.Store
	clock      clock.Clock
	periodDays int
	formURL    string
	log        *zap.SugaredLogger
}

// NewService checks the window the journal folds into. periodDays must match
// the journal's configured period; non-positive values take the default.
func NewService(store storage.Store, c clock.Clock, periodDays int, formURL string, log *zap.SugaredLogger) *Service {
	if periodDays <= 0 {
		periodDays = aggregate.DefaultPeriodDays
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, clock: c, periodDays: periodDays, formURL: formURL, log: log}
}

// Check never fails: storage errors degrade to no alert.
func (s *Service) Check(ctx context.Context, userID int64) Result {
	now := s.clock.Now()

	var row *models.WeeklyAggregate
	var state *models.AlertState
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		state, err = tx.GetAlertState(ctx, userID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		row, err = tx.GetAggregate(ctx, userID, s.periodDays)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Warnw("alert check degraded to no alert", "op", "alerts.Check", "user_id", userID, "error", err)
		return Result{}
	}

	res := Evaluate(row, state, now)
	if res.Message != "" {
		res.FormURL = s.formURL
	}
	return res
}

// Acknowledge restarts the suppression window at now.
func (s *Service) Acknowledge(ctx context.Context, userID int64) (time.Time, error) {
	now := s.clock.Now()
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.SaveAlertState(ctx, &models.AlertState{UserID: userID, LastMindCheckAt: &now})
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("acknowledge alert: %w", err)
	}
	return now, nil
}
