// Package share issues consent-gated, expiring, revocable links to a frozen
// copy of a user's weekly report.
//
// Only the SHA-256 digest of a token is persisted; the plaintext exists only
// in the Create result and must never be logged.
package share

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moodlog/internal/aggregate"
	"moodlog/internal/cache"
	"moodlog/internal/clock"
	"moodlog/internal/consent"
	"moodlog/internal/models"
	"moodlog/internal/storage"
)

var (
	ErrNoDataToShare = errors.New("no data to share")
	ErrNotFound      = errors.New("share not found")
	ErrExpired       = errors.New("share expired")
)

const (
	tokenBytes           = 32
	DefaultExpiresInDays = 7
	MaxExpiresInDays     = 30
	MaxPeriodDays        = 31
	day                  = 24 * time.Hour
)

type Created struct {
	Token     string    `json:"token"`
	SharePath string    `json:"share_path"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	store storage.Store
	cache cache.Cache
	clock clock.Clock
	log   *zap.SugaredLogger
}

func NewService(store storage.Store, c cache.Cache, clk clock.Clock, log *zap.SugaredLogger) *Service {
	if c == nil {
		c = cache.NewLRU(cache.MaxCacheSize)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, cache: c, clock: clk, log: log}
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest is the one-way lookup key stored for a token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create freezes the user's current window and returns a new plaintext token.
// The stored window is preferred; when it is empty the snapshot is rebuilt
// from the journal entries of the last periodDays days. Non-positive values
// take the defaults; larger values are capped at MaxPeriodDays and
// MaxExpiresInDays.
func (s *Service) Create(ctx context.Context, userID int64, periodDays, expiresInDays int) (*Created, error) {
	if periodDays <= 0 {
		periodDays = aggregate.DefaultPeriodDays
	}
	if expiresInDays <= 0 {
		expiresInDays = DefaultExpiresInDays
	}
	periodDays = min(periodDays, MaxPeriodDays)
	expiresInDays = min(expiresInDays, MaxExpiresInDays)
	now := s.clock.Now()

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}
	expiresAt := now.Add(time.Duration(expiresInDays) * day)

	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := consent.Require(ctx, tx, userID); err != nil {
			return err
		}

		view, err := s.source(ctx, tx, userID, periodDays, now)
		if err != nil {
			return err
		}

		snapshot, err := json.Marshal(models.Snapshot{
			Period:         periodDays,
			Items:          view.Items,
			OneLineSummary: view.OneLineSummary,
			NegativeRatio:  view.NegativeRatio,
			GeneratedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}

		return tx.InsertShare(ctx, &models.ShareToken{
			UserID:      userID,
			TokenDigest: Digest(token),
			Snapshot:    snapshot,
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Created{
		Token:     token,
		SharePath: "/reports/shared/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) source(ctx context.Context, tx storage.Tx, userID int64, periodDays int, now time.Time) (aggregate.View, error) {
	row, err := tx.GetAggregate(ctx, userID, periodDays)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return aggregate.View{}, err
	}
	if view := aggregate.Read(row, periodDays); len(view.Items) > 0 {
		return view, nil
	}

	entries, err := tx.EntriesSince(ctx, userID, now.Add(-time.Duration(periodDays)*day))
	if err != nil {
		return aggregate.View{}, err
	}
	if len(entries) == 0 {
		return aggregate.View{}, ErrNoDataToShare
	}
	return aggregate.FromEntries(entries, periodDays), nil
}

// Read returns the frozen snapshot for a live token. Unknown and revoked
// tokens give ErrNotFound; callers should not distinguish it from ErrExpired
// in responses.
//
// Revocation and expiry are always read from the store. The cache only saves
// loading the snapshot body, so a stale cache entry can never revive a
// revoked token.
func (s *Service) Read(ctx context.Context, token string) (json.RawMessage, error) {
	digest := Digest(token)
	now := s.clock.Now()

	var status *models.ShareToken
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		status, err = tx.GetShareStatus(ctx, digest)
		return err
	})
	if err := liveness(status, err, now); err != nil {
		return nil, err
	}

	if e, ok := s.cache.Get(ctx, digest); ok {
		return json.RawMessage(e.Snapshot), nil
	}

	var share *models.ShareToken
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		share, err = tx.GetShareByDigest(ctx, digest)
		return err
	})
	if err := liveness(share, err, now); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, digest, cache.Entry{Snapshot: share.Snapshot, ExpiresAt: share.ExpiresAt})
	return json.RawMessage(share.Snapshot), nil
}

func liveness(share *models.ShareToken, err error, now time.Time) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("read share: %w", err)
	case share.Revoked:
		return ErrNotFound
	case !now.Before(share.ExpiresAt):
		return ErrExpired
	}
	return nil
}

// Revoke marks the caller's own token revoked. It reports false when the
// token does not exist or belongs to someone else.
func (s *Service) Revoke(ctx context.Context, userID int64, token string) (bool, error) {
	digest := Digest(token)
	var ok bool
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		ok, err = tx.RevokeShare(ctx, userID, digest)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("revoke share: %w", err)
	}
	if ok {
		s.cache.Invalidate(ctx, digest)
		s.log.Infow("share revoked", "op", "share.Revoke", "user_id", userID, "digest", digest[:12])
	}
	return ok, nil
}

// ListActive returns timing metadata of the user's live shares only.
func (s *Service) ListActive(ctx context.Context, userID int64) ([]models.ShareInfo, error) {
	now := s.clock.Now()
	var shares []models.ShareToken
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		shares, err = tx.ListActiveShares(ctx, userID, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	out := make([]models.ShareInfo, 0, len(shares))
	for _, sh := range shares {
		out = append(out, models.ShareInfo{CreatedAt: sh.CreatedAt, ExpiresAt: sh.ExpiresAt})
	}
	return out, nil
}
