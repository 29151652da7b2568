package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moodlog/internal/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping db: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(postgresSchema) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("internal/storage/postgres.go Migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (t *pgTx) GetAggregate(ctx context.Context, userID int64, periodDays int) (*models.WeeklyAggregate, error) {
	return t.selectAggregate(ctx, "internal/storage/postgres.go GetAggregate", userID, periodDays, "")
}

func (t *pgTx) LockAggregate(ctx context.Context, userID int64, periodDays int) (*models.WeeklyAggregate, error) {
	op := "internal/storage/postgres.go LockAggregate"

	// Materialize the row so that FOR UPDATE has something to lock even for
	// the first write of a user.
	_, err := t.tx.Exec(ctx, `
	INSERT INTO weekly_aggregates (user_id, period_days, items, updated_at)
	VALUES ($1, $2, '[]', now())
	ON CONFLICT (user_id, period_days) DO NOTHING
	`, userID, periodDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t.selectAggregate(ctx, op, userID, periodDays, "FOR UPDATE")
}

func (t *pgTx) selectAggregate(ctx context.Context, op string, userID int64, periodDays int, suffix string) (*models.WeeklyAggregate, error) {
	sql_query := `
	SELECT user_id, period_days, items, negative_ratio, one_line_summary, updated_at
	FROM weekly_aggregates
	WHERE user_id = $1 AND period_days = $2
	` + suffix

	var agg models.WeeklyAggregate
	var itemsJSON []byte
	err := t.tx.QueryRow(ctx, sql_query, userID, periodDays).Scan(
		&agg.UserID,
		&agg.PeriodDays,
		&itemsJSON,
		&agg.NegativeRatio,
		&agg.OneLineSummary,
		&agg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	agg.Items = decodeItems(itemsJSON)
	return &agg, nil
}

func (t *pgTx) SaveAggregate(ctx context.Context, agg *models.WeeklyAggregate) error {
	op := "internal/storage/postgres.go SaveAggregate"

	itemsJSON, err := json.Marshal(agg.Items)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal items: %w", op, err)
	}

	sql_query := `
	INSERT INTO weekly_aggregates (user_id, period_days, items, negative_ratio, one_line_summary, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, period_days) DO UPDATE SET
	items = EXCLUDED.items,
	negative_ratio = EXCLUDED.negative_ratio,
	one_line_summary = EXCLUDED.one_line_summary,
	updated_at = EXCLUDED.updated_at
	`
	_, err = t.tx.Exec(ctx, sql_query,
		agg.UserID, agg.PeriodDays, itemsJSON, agg.NegativeRatio, agg.OneLineSummary, agg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: failed to save aggregate: %w", op, err)
	}
	return nil
}

func (t *pgTx) GetAlertState(ctx context.Context, userID int64) (*models.AlertState, error) {
	var st models.AlertState
	err := t.tx.QueryRow(ctx,
		`SELECT user_id, last_mind_check_at FROM alert_states WHERE user_id = $1`, userID,
	).Scan(&st.UserID, &st.LastMindCheckAt)
	if err != nil {
		return nil, fmt.Errorf("internal/storage/postgres.go GetAlertState: %w", notFound(err))
	}
	return &st, nil
}

func (t *pgTx) SaveAlertState(ctx context.Context, st *models.AlertState) error {
	_, err := t.tx.Exec(ctx, `
	INSERT INTO alert_states (user_id, last_mind_check_at) VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET last_mind_check_at = EXCLUDED.last_mind_check_at
	`, st.UserID, st.LastMindCheckAt)
	if err != nil {
		return fmt.Errorf("internal/storage/postgres.go SaveAlertState: %w", err)
	}
	return nil
}

func (t *pgTx) GetConsent(ctx context.Context, userID int64) (*models.ConsentRecord, error) {
	var rec models.ConsentRecord
	err := t.tx.QueryRow(ctx,
		`SELECT user_id, consented, consented_at, revoked_at FROM user_consents WHERE user_id = $1`, userID,
	).Scan(&rec.UserID, &rec.Consented, &rec.ConsentedAt, &rec.RevokedAt)
	if err != nil {
		return nil, fmt.Errorf("internal/storage/postgres.go GetConsent: %w", notFound(err))
	}
	return &rec, nil
}

func (t *pgTx) SaveConsent(ctx context.Context, rec *models.ConsentRecord) error {
	_, err := t.tx.Exec(ctx, `
	INSERT INTO user_consents (user_id, consented, consented_at, revoked_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE SET
	consented = EXCLUDED.consented,
	consented_at = EXCLUDED.consented_at,
	revoked_at = EXCLUDED.revoked_at
	`, rec.UserID, rec.Consented, rec.ConsentedAt, rec.RevokedAt)
	if err != nil {
		return fmt.Errorf("internal/storage/postgres.go SaveConsent: %w", err)
	}
	return nil
}

func (t *pgTx) InsertShare(ctx context.Context, sh *models.ShareToken) error {
	err := t.tx.QueryRow(ctx, `
	INSERT INTO shared_reports (user_id, token_digest, snapshot, expires_at, revoked, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`, sh.UserID, sh.TokenDigest, sh.Snapshot, sh.ExpiresAt, sh.Revoked, sh.CreatedAt).Scan(&sh.ID)
	if err != nil {
		return fmt.Errorf("internal/storage/postgres.go InsertShare: %w", err)
	}
	return nil
}

func (t *pgTx) GetShareByDigest(ctx context.Context, digest string) (*models.ShareToken, error) {
	var sh models.ShareToken
	err := t.tx.QueryRow(ctx, `
	SELECT id, user_id, token_digest, snapshot, expires_at, revoked, created_at
	FROM shared_reports WHERE token_digest = $1
	`, digest).Scan(&sh.ID, &sh.UserID, &sh.TokenDigest, &sh.Snapshot, &sh.ExpiresAt, &sh.Revoked, &sh.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("internal/storage/postgres.go GetShareByDigest: %w", notFound(err))
	}
	return &sh, nil
}

func (t *pgTx) GetShareStatus(ctx context.Context, digest string) (*models.ShareToken, error) {
	var sh models.ShareToken
	err := t.tx.QueryRow(ctx, `
	SELECT id, user_id, token_digest, expires_at, revoked, created_at
	FROM shared_reports WHERE token_digest = $1
	`, digest).Scan(&sh.ID, &sh.UserID, &sh.TokenDigest, &sh.ExpiresAt, &sh.Revoked, &sh.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("internal/storage/postgres.go GetShareStatus: %w", notFound(err))
	}
	return &sh, nil
}

func (t *pgTx) RevokeShare(ctx context.Context, userID int64, digest string) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE shared_reports SET revoked = TRUE WHERE token_digest = $1 AND user_id = $2`, digest, userID)
	if err != nil {
		return false, fmt.Errorf("internal/storage/postgres.go RevokeShare: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ListActiveShares(ctx context.Context, userID int64, now time.Time) ([]models.ShareToken, error) {
	op := "internal/storage/postgres.go ListActiveShares"

	rows, err := t.tx.Query(ctx, `
	SELECT id, user_id, expires_at, created_at
	FROM shared_reports
	WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2
	ORDER BY created_at
	`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	shares := []models.ShareToken{}
	for rows.Next() {
		var sh models.ShareToken
		if err := rows.Scan(&sh.ID, &sh.UserID, &sh.ExpiresAt, &sh.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

func (t *pgTx) SaveEntry(ctx context.Context, e *models.JournalEntry) error {
	op := "internal/storage/postgres.go SaveEntry"

	classification, err := json.Marshal(e.Classification)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal classification: %w", op, err)
	}

	sql_query := `
	INSERT INTO journal_entries (id, user_id, entry_text, summary, classification, entry_date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (user_id, entry_date) DO UPDATE SET
	id = EXCLUDED.id,
	entry_text = EXCLUDED.entry_text,
	summary = EXCLUDED.summary,
	classification = EXCLUDED.classification,
	created_at = EXCLUDED.created_at
	`
	_, err = t.tx.Exec(ctx, sql_query,
		e.ID, e.UserID, e.EntryText, e.Summary, classification, e.EntryDate, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: failed to save entry: %w", op, err)
	}
	return nil
}

func (t *pgTx) InsertEntry(ctx context.Context, e *models.JournalEntry) (bool, error) {
	op := "internal/storage/postgres.go InsertEntry"

	classification, err := json.Marshal(e.Classification)
	if err != nil {
		return false, fmt.Errorf("%s: failed to marshal classification: %w", op, err)
	}

	sql_query := `
	INSERT INTO journal_entries (id, user_id, entry_text, summary, classification, entry_date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (user_id, entry_date) DO NOTHING
	`
	tag, err := t.tx.Exec(ctx, sql_query,
		e.ID, e.UserID, e.EntryText, e.Summary, classification, e.EntryDate, e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%s: failed to insert entry: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) EntryByID(ctx context.Context, userID int64, id string) (*models.JournalEntry, error) {
	e, err := scanPgEntry(t.tx.QueryRow(ctx,
		`SELECT `+pgEntryColumns+` FROM journal_entries WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, fmt.Errorf("internal/storage/postgres.go EntryByID: %w", notFound(err))
	}
	return e, nil
}

func (t *pgTx) UpdateEntry(ctx context.Context, e *models.JournalEntry) (bool, error) {
	op := "internal/storage/postgres.go UpdateEntry"

	classification, err := json.Marshal(e.Classification)
	if err != nil {
		return false, fmt.Errorf("%s: failed to marshal classification: %w", op, err)
	}

	sql_query := `
	UPDATE journal_entries
	SET entry_text = $3, summary = $4, classification = $5
	WHERE user_id = $1 AND id = $2
	`
	tag, err := t.tx.Exec(ctx, sql_query, e.UserID, e.ID, e.EntryText, e.Summary, classification)
	if err != nil {
		return false, fmt.Errorf("%s: failed to update entry: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) DeleteEntry(ctx context.Context, userID int64, id string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM journal_entries WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return false, fmt.Errorf("internal/storage/postgres.go DeleteEntry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) CountEntries(ctx context.Context, userID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("internal/storage/postgres.go CountEntries: %w", err)
	}
	return n, nil
}

const pgEntryColumns = `id, user_id, entry_text, summary, classification, entry_date, created_at`

func scanPgEntry(row pgx.Row) (*models.JournalEntry, error) {
	var e models.JournalEntry
	var classification []byte
	if err := row.Scan(&e.ID, &e.UserID, &e.EntryText, &e.Summary, &classification, &e.EntryDate, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Classification = decodeClassification(classification)
	return &e, nil
}

func (t *pgTx) EntryOnDate(ctx context.Context, userID int64, date string) (*models.JournalEntry, error) {
	e, err := scanPgEntry(t.tx.QueryRow(ctx,
		`SELECT `+pgEntryColumns+` FROM journal_entries WHERE user_id = $1 AND entry_date = $2`, userID, date))
	if err != nil {
		return nil, fmt.Errorf("internal/storage/postgres.go EntryOnDate: %w", notFound(err))
	}
	return e, nil
}

func (t *pgTx) EntriesSince(ctx context.Context, userID int64, since time.Time) ([]models.JournalEntry, error) {
	return t.queryEntries(ctx, "internal/storage/postgres.go EntriesSince",
		`SELECT `+pgEntryColumns+` FROM journal_entries WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at ASC`,
		userID, since)
}

func (t *pgTx) ListEntries(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error) {
	return t.queryEntries(ctx, "internal/storage/postgres.go ListEntries",
		`SELECT `+pgEntryColumns+` FROM journal_entries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
}

func (t *pgTx) queryEntries(ctx context.Context, op, sql_query string, args ...any) ([]models.JournalEntry, error) {
	rows, err := t.tx.Query(ctx, sql_query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeItems keeps each stored element raw. A column that is not a JSON
// array yields no items.
func decodeItems(b []byte) []json.RawMessage {
	var items []json.RawMessage
	if len(b) == 0 || json.Unmarshal(b, &items) != nil {
		return []json.RawMessage{}
	}
	return items
}

func decodeClassification(b []byte) *models.Classification {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var c models.Classification
	if err := json.Unmarshal(b, &c); err != nil {
		return nil
	}
	return &c
}
