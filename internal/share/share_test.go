package share

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"moodlog/internal/aggregate"
	"moodlog/internal/cache"
	"moodlog/internal/clock"
	"moodlog/internal/consent"
	"moodlog/internal/models"
	"moodlog/internal/storage"
)

var start = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *storage.SQLiteStore
	svc   *Service
	now   time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "share.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st, now: start}
	f.svc = NewService(st, nil, clock.Func(func() time.Time { return f.now }), nil)
	return f
}

func (f *fixture) consent(t *testing.T, userID int64) {
	t.Helper()
	if _, err := consent.NewGate(f.store, clock.NewFixed(start)).SetConsent(context.Background(), userID, true); err != nil {
		t.Fatalf("consent: %v", err)
	}
}

func (f *fixture) seedWindow(t *testing.T, userID int64, summaries ...string) {
	t.Helper()
	ctx := context.Background()
	err := f.store.WithTx(ctx, func(tx storage.Tx) error {
		row, err := tx.LockAggregate(ctx, userID, aggregate.DefaultPeriodDays)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		for i, s := range summaries {
			date := start.AddDate(0, 0, i-len(summaries)).Format("2006-01-02")
			row = aggregate.Upsert(row, userID, aggregate.DefaultPeriodDays, date, s, models.EmotionSadness, start)
		}
		return tx.SaveAggregate(ctx, row)
	})
	if err != nil {
		t.Fatalf("seed window: %v", err)
	}
}

func TestCreate_RequiresConsent(t *testing.T) {
	f := setup(t)
	f.seedWindow(t, 1, "하루")

	if _, err := f.svc.Create(context.Background(), 1, 7, 7); !errors.Is(err, consent.ErrConsentRequired) {
		t.Fatalf("err = %v, want ErrConsentRequired", err)
	}
}

func TestCreate_NoData(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)

	if _, err := f.svc.Create(context.Background(), 1, 7, 7); !errors.Is(err, ErrNoDataToShare) {
		t.Fatalf("err = %v, want ErrNoDataToShare", err)
	}
}

func TestCreate_StoresDigestOnly(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "하루")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, 7, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Token) < 43 {
		t.Errorf("token too short: %d chars", len(created.Token))
	}
	if created.SharePath != "/reports/shared/"+created.Token {
		t.Errorf("SharePath = %q", created.SharePath)
	}
	if !created.ExpiresAt.Equal(start.Add(7 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", created.ExpiresAt)
	}

	err = f.store.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetShareByDigest(ctx, created.Token); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("plaintext token is usable as a lookup key")
		}
		sh, err := tx.GetShareByDigest(ctx, Digest(created.Token))
		if err != nil {
			return err
		}
		if strings.Contains(sh.TokenDigest, created.Token) {
			t.Errorf("stored digest contains the token")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
}

func TestRead_SnapshotIsFrozen(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "처음")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, 7, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.seedWindow(t, 1, "나중", "또 나중")

	// bypass the cache so the stored copy is checked
	f.svc = NewService(f.store, nil, clock.NewFixed(start), nil)
	raw, err := f.svc.Read(ctx, created.Token)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Items) != 1 || snap.OneLineSummary != "처음" || snap.Period != 7 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestRead_Expired(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "하루")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, 7, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Read(ctx, created.Token); err != nil {
		t.Fatalf("Read before expiry: %v", err)
	}

	f.now = start.Add(24 * time.Hour)
	if _, err := f.svc.Read(ctx, created.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestRead_Unknown(t *testing.T) {
	f := setup(t)
	if _, err := f.svc.Read(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRevoke(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "하루")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, 7, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := f.svc.Revoke(ctx, 2, created.Token)
	if err != nil || ok {
		t.Fatalf("Revoke by other user = %v, %v; want false", ok, err)
	}
	if _, err := f.svc.Read(ctx, created.Token); err != nil {
		t.Fatalf("Read after foreign revoke: %v", err)
	}

	ok, err = f.svc.Revoke(ctx, 1, created.Token)
	if err != nil || !ok {
		t.Fatalf("Revoke by owner = %v, %v; want true", ok, err)
	}
	if _, err := f.svc.Read(ctx, created.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read after revoke: err = %v, want ErrNotFound", err)
	}
}

func TestCreate_FallsBackToEntries(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	ctx := context.Background()

	err := f.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.SaveEntry(ctx, &models.JournalEntry{
			ID:             "e1",
			UserID:         1,
			EntryText:      "오늘은 힘들었다",
			Summary:        "  힘든 하루  ",
			Classification: &models.Classification{PrimaryEmotion: models.EmotionSadness, Intensity: 4},
			EntryDate:      start.Format("2006-01-02"),
			CreatedAt:      start.Add(-time.Hour),
		})
	})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	created, err := f.svc.Create(ctx, 1, 7, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	raw, err := f.svc.Read(ctx, created.Token)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Summary != "힘든 하루" || snap.NegativeRatio != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestListActive(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "하루")
	ctx := context.Background()

	short, err := f.svc.Create(ctx, 1, 7, 1)
	if err != nil {
		t.Fatalf("Create short: %v", err)
	}
	revoked, err := f.svc.Create(ctx, 1, 7, 7)
	if err != nil {
		t.Fatalf("Create revoked: %v", err)
	}
	if _, err := f.svc.Create(ctx, 1, 7, 7); err != nil {
		t.Fatalf("Create live: %v", err)
	}
	if _, err := f.svc.Revoke(ctx, 1, revoked.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	f.now = short.ExpiresAt
	list, err := f.svc.ListActive(ctx, 1)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("active shares = %d, want 1", len(list))
	}

	other, err := f.svc.ListActive(ctx, 2)
	if err != nil || len(other) != 0 {
		t.Fatalf("other user's list = %v, %v", other, err)
	}
}

// revokingCache revokes the share once, just before the first snapshot is
// stored, so the write lands after the revoke's invalidation.
type revokingCache struct {
	*cache.LRU
	revoke func()
	done   bool
}

func (c *revokingCache) Set(ctx context.Context, key string, e cache.Entry) {
	if !c.done {
		c.done = true
		c.revoke()
	}
	c.LRU.Set(ctx, key, e)
}

func TestRead_RevokeDuringCacheFillIsTerminal(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "하루")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, 7, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rc := &revokingCache{LRU: cache.NewLRU(cache.MaxCacheSize)}
	svc := NewService(f.store, rc, clock.NewFixed(start), nil)
	rc.revoke = func() {
		ok, err := svc.Revoke(ctx, 1, created.Token)
		if err != nil || !ok {
			t.Errorf("Revoke = %v, %v", ok, err)
		}
	}

	if _, err := svc.Read(ctx, created.Token); err != nil {
		t.Fatalf("first Read: %v", err)
	}
	if rc.Len() != 1 {
		t.Fatalf("cache holds %d entries, want the stale snapshot", rc.Len())
	}
	if _, err := svc.Read(ctx, created.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read after revoke: err = %v, want ErrNotFound", err)
	}
}

func TestCreate_CapsLengths(t *testing.T) {
	f := setup(t)
	f.consent(t, 1)
	f.seedWindow(t, 1, "하루")
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, 1000, 200000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := start.Add(MaxExpiresInDays * 24 * time.Hour); !created.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", created.ExpiresAt, want)
	}
	if _, err := f.svc.Read(ctx, created.Token); err != nil {
		t.Fatalf("Read: %v", err)
	}
}
