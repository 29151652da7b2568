package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"moodlog/internal/models"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore keeps a single connection open, so transactions never overlap
// and LockAggregate needs no row lock.
type SQLiteStore struct {
	conn *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, q := range splitStatements(sqliteSchema) {
		if _, err := s.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func toNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNano(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func unixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func sqlNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (t *sqliteTx) GetAggregate(ctx context.Context, userID int64, periodDays int) (*models.WeeklyAggregate, error) {
	var agg models.WeeklyAggregate
	var items string
	var updated int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT user_id, period_days, items, negative_ratio, one_line_summary, updated_at
		FROM weekly_aggregates WHERE user_id = ? AND period_days = ?`, userID, periodDays,
	).Scan(&agg.UserID, &agg.PeriodDays, &items, &agg.NegativeRatio, &agg.OneLineSummary, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate: %w", sqlNotFound(err))
	}
	agg.Items = decodeItems([]byte(items))
	agg.UpdatedAt = unixNano(updated)
	return &agg, nil
}

func (t *sqliteTx) LockAggregate(ctx context.Context, userID int64, periodDays int) (*models.WeeklyAggregate, error) {
	return t.GetAggregate(ctx, userID, periodDays)
}

func (t *sqliteTx) SaveAggregate(ctx context.Context, agg *models.WeeklyAggregate) error {
	items, err := json.Marshal(agg.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO weekly_aggregates (user_id, period_days, items, negative_ratio, one_line_summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, period_days) DO UPDATE SET
			items = excluded.items,
			negative_ratio = excluded.negative_ratio,
			one_line_summary = excluded.one_line_summary,
			updated_at = excluded.updated_at`,
		agg.UserID, agg.PeriodDays, string(items), agg.NegativeRatio, agg.OneLineSummary, agg.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save aggregate: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetAlertState(ctx context.Context, userID int64) (*models.AlertState, error) {
	var st models.AlertState
	var last sql.NullInt64
	err := t.tx.QueryRowContext(ctx,
		`SELECT user_id, last_mind_check_at FROM alert_states WHERE user_id = ?`, userID,
	).Scan(&st.UserID, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert state: %w", sqlNotFound(err))
	}
	st.LastMindCheckAt = fromNano(last)
	return &st, nil
}

func (t *sqliteTx) SaveAlertState(ctx context.Context, st *models.AlertState) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO alert_states (user_id, last_mind_check_at) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET last_mind_check_at = excluded.last_mind_check_at`,
		st.UserID, toNano(st.LastMindCheckAt))
	if err != nil {
		return fmt.Errorf("failed to save alert state: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetConsent(ctx context.Context, userID int64) (*models.ConsentRecord, error) {
	var rec models.ConsentRecord
	var consentedAt, revokedAt sql.NullInt64
	err := t.tx.QueryRowContext(ctx,
		`SELECT user_id, consented, consented_at, revoked_at FROM user_consents WHERE user_id = ?`, userID,
	).Scan(&rec.UserID, &rec.Consented, &consentedAt, &revokedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get consent: %w", sqlNotFound(err))
	}
	rec.ConsentedAt = fromNano(consentedAt)
	rec.RevokedAt = fromNano(revokedAt)
	return &rec, nil
}

func (t *sqliteTx) SaveConsent(ctx context.Context, rec *models.ConsentRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_consents (user_id, consented, consented_at, revoked_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			consented = excluded.consented,
			consented_at = excluded.consented_at,
			revoked_at = excluded.revoked_at`,
		rec.UserID, rec.Consented, toNano(rec.ConsentedAt), toNano(rec.RevokedAt))
	if err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}
	return nil
}

func (t *sqliteTx) InsertShare(ctx context.Context, sh *models.ShareToken) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO shared_reports (user_id, token_digest, snapshot, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sh.UserID, sh.TokenDigest, string(sh.Snapshot), sh.ExpiresAt.UnixNano(), sh.Revoked, sh.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert share: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read share id: %w", err)
	}
	sh.ID = id
	return nil
}

func (t *sqliteTx) GetShareByDigest(ctx context.Context, digest string) (*models.ShareToken, error) {
	var sh models.ShareToken
	var snapshot string
	var expires, created int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, token_digest, snapshot, expires_at, revoked, created_at
		FROM shared_reports WHERE token_digest = ?`, digest,
	).Scan(&sh.ID, &sh.UserID, &sh.TokenDigest, &snapshot, &expires, &sh.Revoked, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", sqlNotFound(err))
	}
	sh.Snapshot = []byte(snapshot)
	sh.ExpiresAt = unixNano(expires)
	sh.CreatedAt = unixNano(created)
	return &sh, nil
}

func (t *sqliteTx) GetShareStatus(ctx context.Context, digest string) (*models.ShareToken, error) {
	var sh models.ShareToken
	var expires, created int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, token_digest, expires_at, revoked, created_at
		FROM shared_reports WHERE token_digest = ?`, digest,
	).Scan(&sh.ID, &sh.UserID, &sh.TokenDigest, &expires, &sh.Revoked, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to get share status: %w", sqlNotFound(err))
	}
	sh.ExpiresAt = unixNano(expires)
	sh.CreatedAt = unixNano(created)
	return &sh, nil
}

func (t *sqliteTx) RevokeShare(ctx context.Context, userID int64, digest string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE shared_reports SET revoked = TRUE WHERE token_digest = ? AND user_id = ?`, digest, userID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke share: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) ListActiveShares(ctx context.Context, userID int64, now time.Time) ([]models.ShareToken, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, user_id, expires_at, created_at FROM shared_reports
		WHERE user_id = ? AND revoked = FALSE
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	shares := []models.ShareToken{}
	for rows.Next() {
		var sh models.ShareToken
		var expires, created int64
		if err := rows.Scan(&sh.ID, &sh.UserID, &expires, &created); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		sh.ExpiresAt = unixNano(expires)
		sh.CreatedAt = unixNano(created)
		if !now.Before(sh.ExpiresAt) {
			continue
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

func encodeClassification(c *models.Classification) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal classification: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (t *sqliteTx) SaveEntry(ctx context.Context, e *models.JournalEntry) error {
	classification, err := encodeClassification(e.Classification)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, entry_text, summary, classification, entry_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			id = excluded.id,
			entry_text = excluded.entry_text,
			summary = excluded.summary,
			classification = excluded.classification,
			created_at = excluded.created_at`,
		e.ID, e.UserID, e.EntryText, e.Summary, classification, e.EntryDate, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

func (t *sqliteTx) InsertEntry(ctx context.Context, e *models.JournalEntry) (bool, error) {
	classification, err := encodeClassification(e.Classification)
	if err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, entry_text, summary, classification, entry_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entry_date) DO NOTHING`,
		e.ID, e.UserID, e.EntryText, e.Summary, classification, e.EntryDate, e.CreatedAt.UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to insert entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert entry: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) EntryByID(ctx context.Context, userID int64, id string) (*models.JournalEntry, error) {
	e, err := scanSQLiteEntry(t.tx.QueryRowContext(ctx,
		`SELECT `+sqliteEntryColumns+` FROM journal_entries WHERE user_id = ? AND id = ?`, userID, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", sqlNotFound(err))
	}
	return e, nil
}

func (t *sqliteTx) UpdateEntry(ctx context.Context, e *models.JournalEntry) (bool, error) {
	classification, err := encodeClassification(e.Classification)
	if err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE journal_entries SET entry_text = ?, summary = ?, classification = ?
		WHERE user_id = ? AND id = ?`,
		e.EntryText, e.Summary, classification, e.UserID, e.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update entry: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) DeleteEntry(ctx context.Context, userID int64, id string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM journal_entries WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) CountEntries(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteEntryColumns = `id, user_id, entry_text, summary, classification, entry_date, created_at`

func scanSQLiteEntry(row rowScanner) (*models.JournalEntry, error) {
	var e models.JournalEntry
	var classification sql.NullString
	var created int64
	if err := row.Scan(&e.ID, &e.UserID, &e.EntryText, &e.Summary, &classification, &e.EntryDate, &created); err != nil {
		return nil, err
	}
	if classification.Valid {
		e.Classification = decodeClassification([]byte(classification.String))
	}
	e.CreatedAt = unixNano(created)
	return &e, nil
}

func (t *sqliteTx) EntryOnDate(ctx context.Context, userID int64, date string) (*models.JournalEntry, error) {
	e, err := scanSQLiteEntry(t.tx.QueryRowContext(ctx,
		`SELECT `+sqliteEntryColumns+` FROM journal_entries WHERE user_id = ? AND entry_date = ?`, userID, date))
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", sqlNotFound(err))
	}
	return e, nil
}

func (t *sqliteTx) EntriesSince(ctx context.Context, userID int64, since time.Time) ([]models.JournalEntry, error) {
	return t.queryEntries(ctx,
		`SELECT `+sqliteEntryColumns+` FROM journal_entries WHERE user_id = ? AND created_at >= ? ORDER BY created_at ASC`,
		userID, since.UnixNano())
}

func (t *sqliteTx) ListEntries(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error) {
	return t.queryEntries(ctx,
		`SELECT `+sqliteEntryColumns+` FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
}

func (t *sqliteTx) queryEntries(ctx context.Context, query string, args ...any) ([]models.JournalEntry, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
