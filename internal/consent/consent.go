// Package consent records whether a user allows their weekly report to be shared.
package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodlog/internal/clock"
	"moodlog/internal/models"
	"moodlog/internal/storage"
)

var ErrConsentRequired = errors.New("consent required")

type State string

const (
	NotConsented State = "NOT_CONSENTED"
	Consented    State = "CONSENTED"
)

// Status is the payload shown to the user.
type Status struct {
	Consented      bool       `json:"consented"`
	Message        string     `json:"message"`
	ActionRequired string     `json:"action_required"`
	ConsentedAt    *time.Time `json:"consented_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// StateOf treats a missing record as not consented.
func StateOf(rec *models.ConsentRecord) State {
	if rec != nil && rec.Consented {
		return Consented
	}
	return NotConsented
}

// Apply returns the record after a grant or revoke at now.
func Apply(rec *models.ConsentRecord, userID int64, granted bool, now time.Time) *models.ConsentRecord {
	next := models.ConsentRecord{UserID: userID}
	if rec != nil {
		next = *rec
	}
	next.Consented = granted
	if granted {
		next.ConsentedAt = &now
		next.RevokedAt = nil
	} else {
		next.RevokedAt = &now
	}
	return &next
}

func StatusOf(rec *models.ConsentRecord) Status {
	if StateOf(rec) == Consented {
		return Status{
			Consented:      true,
			Message:        "이미 동의하셨습니다",
			ActionRequired: "none",
			ConsentedAt:    rec.ConsentedAt,
		}
	}
	st := Status{Message: "동의하셔야 합니다", ActionRequired: "consent"}
	if rec != nil {
		st.RevokedAt = rec.RevokedAt
	}
	return st
}

type Gate struct {
	store storage.Store
	clock clock.Clock
}

func NewGate(store storage.Store, c clock.Clock) *Gate {
	return &Gate{store: store, clock: c}
}

func (g *Gate) Status(ctx context.Context, userID int64) (Status, error) {
	var rec *models.ConsentRecord
	err := g.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		rec, err = load(ctx, tx, userID)
		return err
	})
	if err != nil {
		return Status{}, fmt.Errorf("consent status: %w", err)
	}
	return StatusOf(rec), nil
}

func (g *Gate) SetConsent(ctx context.Context, userID int64, granted bool) (*models.ConsentRecord, error) {
	now := g.clock.Now()
	var saved *models.ConsentRecord
	err := g.store.WithTx(ctx, func(tx storage.Tx) error {
		rec, err := load(ctx, tx, userID)
		if err != nil {
			return err
		}
		saved = Apply(rec, userID, granted, now)
		return tx.SaveConsent(ctx, saved)
	})
	if err != nil {
		return nil, fmt.Errorf("set consent: %w", err)
	}
	return saved, nil
}

// Require returns ErrConsentRequired unless the user has consented. It runs
// inside the caller's transaction.
func Require(ctx context.Context, tx storage.Tx, userID int64) error {
	rec, err := load(ctx, tx, userID)
	if err != nil {
		return err
	}
	if StateOf(rec) != Consented {
		return ErrConsentRequired
	}
	return nil
}

func load(ctx context.Context, tx storage.Tx, userID int64) (*models.ConsentRecord, error) {
	rec, err := tx.GetConsent(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}
