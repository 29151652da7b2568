package models

import (
	"time"
)

type JournalEntry struct {
	ID             string          `json:"id" db:"id"`
	UserID         int64           `json:"user_id" db:"user_id"`
	EntryText      string          `json:"entry_text" db:"entry_text"`
	Summary        string          `json:"summary" db:"summary"`
	Classification *Classification `json:"classification,omitempty" db:"classification"`
	EntryDate      string          `json:"entry_date" db:"entry_date"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
