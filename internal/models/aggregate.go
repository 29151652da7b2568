package models

import (
	"encoding/json"
	"time"
)

type AggregateItem struct {
	Date           string `json:"date"`
	Summary        string `json:"summary"`
	PrimaryEmotion string `json:"primary_emotion"`
}

// WeeklyAggregate is the rolling window row keyed by (UserID, PeriodDays).
// Items holds raw stored JSON so that unparseable entries survive a round trip
// until the aggregate package normalizes them.
type WeeklyAggregate struct {
	UserID         int64             `json:"user_id" db:"user_id"`
	PeriodDays     int               `json:"period_days" db:"period_days"`
	Items          []json.RawMessage `json:"items" db:"items"`
	NegativeRatio  float64           `json:"negative_ratio" db:"negative_ratio"`
	OneLineSummary string            `json:"one_line_summary" db:"one_line_summary"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

type AlertState struct {
	UserID          int64      `json:"user_id" db:"user_id"`
	LastMindCheckAt *time.Time `json:"last_mind_check_at" db:"last_mind_check_at"`
}

type ConsentRecord struct {
	UserID      int64      `json:"user_id" db:"user_id"`
	Consented   bool       `json:"consented" db:"consented"`
	ConsentedAt *time.Time `json:"consented_at,omitempty" db:"consented_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Snapshot is the frozen report captured when a share is created.
type Snapshot struct {
	Period         int             `json:"period"`
	Items          []AggregateItem `json:"items"`
	OneLineSummary string          `json:"one_line_summary"`
	NegativeRatio  float64         `json:"negative_ratio"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// ShareToken is the persisted side of a share. The plaintext token is never stored.
type ShareToken struct {
	ID          int64     `json:"-" db:"id"`
	UserID      int64     `json:"-" db:"user_id"`
	TokenDigest string    `json:"-" db:"token_digest"`
	Snapshot    []byte    `json:"-" db:"snapshot"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
	Revoked     bool      `json:"-" db:"revoked"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ShareInfo is the listing view of an active share.
type ShareInfo struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
