// Package storage persists the journal, rolling windows, alert state, consent
// and share tokens. Every service operation runs inside one WithTx call.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodlog/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type Tx interface {
	GetAggregate(ctx context.Context, userID int64, periodDays int) (*models.WeeklyAggregate, error)
	// LockAggregate reads the window for a read-modify-write. Concurrent
	// callers for the same key are serialized until the transaction ends.
	LockAggregate(ctx context.Context, userID int64, periodDays int) (*models.WeeklyAggregate, error)
	SaveAggregate(ctx context.Context, agg *models.WeeklyAggregate) error

	GetAlertState(ctx context.Context, userID int64) (*models.AlertState, error)
	SaveAlertState(ctx context.Context, state *models.AlertState) error

	GetConsent(ctx context.Context, userID int64) (*models.ConsentRecord, error)
	SaveConsent(ctx context.Context, rec *models.ConsentRecord) error

	InsertShare(ctx context.Context, share *models.ShareToken) error
	GetShareByDigest(ctx context.Context, digest string) (*models.ShareToken, error)
	// GetShareStatus is GetShareByDigest without the snapshot.
	GetShareStatus(ctx context.Context, digest string) (*models.ShareToken, error)
	RevokeShare(ctx context.Context, userID int64, digest string) (bool, error)
	ListActiveShares(ctx context.Context, userID int64, now time.Time) ([]models.ShareToken, error)

	// SaveEntry inserts an entry or replaces the one for the same user and date.
	SaveEntry(ctx context.Context, entry *models.JournalEntry) error
	// InsertEntry never replaces. It reports false when the user already has
	// an entry on that date.
	InsertEntry(ctx context.Context, entry *models.JournalEntry) (bool, error)
	EntryByID(ctx context.Context, userID int64, id string) (*models.JournalEntry, error)
	// UpdateEntry rewrites text, summary and classification of an existing
	// entry. Date and creation time never change.
	UpdateEntry(ctx context.Context, entry *models.JournalEntry) (bool, error)
	DeleteEntry(ctx context.Context, userID int64, id string) (bool, error)
	CountEntries(ctx context.Context, userID int64) (int, error)
	EntryOnDate(ctx context.Context, userID int64, date string) (*models.JournalEntry, error)
	EntriesSince(ctx context.Context, userID int64, since time.Time) ([]models.JournalEntry, error)
	ListEntries(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error)
}

// Database is a Store that can create its own schema.
type Database interface {
	Store
	Migrate(ctx context.Context) error
}

// Open connects to the backend named by driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, postgresDSN, sqlitePath string) (Database, error) {
	switch driver {
	case "postgres":
		db, err := NewPostgresStore(ctx, postgresDSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "sqlite", "":
		db, err := NewSQLiteStore(sqlitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
}
