// Package journal runs the daily entry pipeline: classify the text, color it,
// store the entry and fold it into the user's rolling window.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"moodlog/internal/aggregate"
	"moodlog/internal/classify"
	"moodlog/internal/clock"
	"moodlog/internal/models"
	"moodlog/internal/palette"
	"moodlog/internal/storage"
)

var (
	ErrEmptyEntry       = errors.New("entry text is empty")
	ErrAlreadySubmitted = errors.New("entry already submitted today")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrInvalidPeriod    = errors.New("statistics period must be 7, 14 or 30 days")
)

const (
	dateLayout   = "2006-01-02"
	DefaultLimit = 20
	MaxLimit     = 100
)

type Classifier interface {
	Classify(ctx context.Context, text string) models.Classification
}

type Options struct {
	PeriodDays   int
	AllowReplace bool
	// Location decides which calendar day an entry belongs to. Nil means UTC.
	Location *time.Location
}

type Service struct {
	store      storage.Store
	classifier Classifier
	clock      clock.Clock
	opts       Options
	log        *zap.SugaredLogger
}

func NewService(store storage.Store, classifier Classifier, c clock.Clock, opts Options, log *zap.SugaredLogger) *Service {
	if opts.PeriodDays <= 0 {
		opts.PeriodDays = aggregate.DefaultPeriodDays
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if classifier == nil {
		classifier = classify.NewService(nil, 0, log)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, classifier: classifier, clock: c, opts: opts, log: log}
}

// Submit stores today's entry for userID. The aggregate is updated on a best
// effort basis; a failure there is logged and the entry is still returned.
func (s *Service) Submit(ctx context.Context, userID int64, text string) (*models.JournalEntry, error) {
	op := "journal.Submit"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyEntry
	}
	now := s.clock.Now()
	date := s.dateOf(now)

	if !s.opts.AllowReplace {
		exists, err := s.submittedOn(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if exists {
			return nil, ErrAlreadySubmitted
		}
	}

	// Classify outside any transaction; it may call the network.
	c := s.classifier.Classify(ctx, text)

	entry := &models.JournalEntry{
		ID:             uuid.NewString(),
		UserID:         userID,
		EntryText:      text,
		Summary:        c.Summary,
		Classification: &c,
		EntryDate:      date,
		CreatedAt:      now,
	}

	// The pre-check above is advisory; a same-day entry may land while the
	// classifier runs, so the insert itself refuses to overwrite.
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		if s.opts.AllowReplace {
			return tx.SaveEntry(ctx, entry)
		}
		inserted, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadySubmitted
		}
		return nil
	})
	if errors.Is(err, ErrAlreadySubmitted) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.fold(ctx, userID, date, c, now); err != nil {
		s.log.Errorw("aggregate update failed", "op", op, "user_id", userID, "date", date, "error", err)
	}

	s.log.Infow("entry submitted", "op", op, "user_id", userID, "emotion", c.PrimaryEmotion,
		"intensity", c.Intensity, "ai_used", c.AIUsed)
	return entry, nil
}

func (s *Service) dateOf(t time.Time) string {
	return t.In(s.opts.Location).Format(dateLayout)
}

func (s *Service) submittedOn(ctx context.Context, userID int64, date string) (bool, error) {
	var exists bool
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.EntryOnDate(ctx, userID, date)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		exists = err == nil
		return err
	})
	return exists, err
}

func (s *Service) fold(ctx context.Context, userID int64, date string, c models.Classification, now time.Time) error {
	return s.store.WithTx(ctx, func(tx storage.Tx) error {
		row, err := tx.LockAggregate(ctx, userID, s.opts.PeriodDays)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		next := aggregate.Upsert(row, userID, s.opts.PeriodDays, date, c.Summary, c.PrimaryEmotion, now)
		return tx.SaveAggregate(ctx, next)
	})
}

// Weekly is the current window plus the color blended from the period's entries.
type Weekly struct {
	aggregate.View
	Representative palette.Representative `json:"representative"`
}

func (s *Service) Weekly(ctx context.Context, userID int64) (*Weekly, error) {
	now := s.clock.Now()
	period := s.opts.PeriodDays

	var row *models.WeeklyAggregate
	var entries []models.JournalEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		row, err = tx.GetAggregate(ctx, userID, period)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		entries, err = tx.EntriesSince(ctx, userID, now.AddDate(0, 0, -period))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("journal.Weekly: %w", err)
	}

	colors := make([]models.EmotionColor, 0, len(entries))
	for _, e := range entries {
		if e.Classification != nil {
			colors = append(colors, e.Classification.Color)
		}
	}
	return &Weekly{
		View:           aggregate.Read(row, period),
		Representative: palette.RepresentativeColor(colors),
	}, nil
}

// List returns the newest entries first. limit is clamped to [1, MaxLimit].
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]models.JournalEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	var entries []models.JournalEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		entries, err = tx.ListEntries(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("journal.List: %w", err)
	}
	return entries, nil
}

// Get returns one of the user's entries.
func (s *Service) Get(ctx context.Context, userID int64, id string) (*models.JournalEntry, error) {
	var entry *models.JournalEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		entry, err = tx.EntryByID(ctx, userID, id)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal.Get: %w", err)
	}
	return entry, nil
}

// Update rewrites an entry's text and classification. The entry keeps its
// date and creation time, and its window item is rewritten in place when
// the date is still inside the window.
func (s *Service) Update(ctx context.Context, userID int64, id, text string) (*models.JournalEntry, error) {
	op := "journal.Update"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyEntry
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	c := s.classifier.Classify(ctx, text)
	now := s.clock.Now()

	var entry *models.JournalEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		entry, err = tx.EntryByID(ctx, userID, id)
		if err != nil {
			return err
		}
		entry.EntryText = text
		entry.Summary = c.Summary
		entry.Classification = &c
		updated, err := tx.UpdateEntry(ctx, entry)
		if err != nil {
			return err
		}
		if !updated {
			return storage.ErrNotFound
		}

		row, err := tx.LockAggregate(ctx, userID, s.opts.PeriodDays)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if next, ok := aggregate.Replace(row, entry.EntryDate, c.Summary, c.PrimaryEmotion, now); ok {
			return tx.SaveAggregate(ctx, next)
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("entry updated", "op", op, "user_id", userID, "entry_id", id, "emotion", c.PrimaryEmotion)
	return entry, nil
}

// Delete removes an entry and drops its date from the window.
func (s *Service) Delete(ctx context.Context, userID int64, id string) error {
	op := "journal.Delete"
	now := s.clock.Now()

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		entry, err := tx.EntryByID(ctx, userID, id)
		if err != nil {
			return err
		}
		deleted, err := tx.DeleteEntry(ctx, userID, id)
		if err != nil {
			return err
		}
		if !deleted {
			return storage.ErrNotFound
		}

		row, err := tx.LockAggregate(ctx, userID, s.opts.PeriodDays)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if next, ok := aggregate.Remove(row, entry.EntryDate, now); ok {
			return tx.SaveAggregate(ctx, next)
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("entry deleted", "op", op, "user_id", userID, "entry_id", id)
	return nil
}

func (s *Service) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		n, err = tx.CountEntries(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("journal.Count: %w", err)
	}
	return n, nil
}

// TodayStatus tells the client whether today's entry is still open.
type TodayStatus struct {
	HasRecord bool       `json:"has_record"`
	CanWrite  bool       `json:"can_write"`
	Message   string     `json:"message"`
	RecordID  string     `json:"record_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (s *Service) Today(ctx context.Context, userID int64) (*TodayStatus, error) {
	date := s.dateOf(s.clock.Now())

	var entry *models.JournalEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		entry, err = tx.EntryOnDate(ctx, userID, date)
		return err
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &TodayStatus{CanWrite: true, Message: "오늘 아직 감정 기록을 작성하지 않았습니다."}, nil
	case err != nil:
		return nil, fmt.Errorf("journal.Today: %w", err)
	}

	return &TodayStatus{
		HasRecord: true,
		CanWrite:  s.opts.AllowReplace,
		Message:   "오늘 감정 기록을 작성했습니다.",
		RecordID:  entry.ID,
		CreatedAt: &entry.CreatedAt,
	}, nil
}

// Statistics summarizes the entries of the last days days.
type Statistics struct {
	Period              int                 `json:"period"`
	RecordCount         int                 `json:"record_count"`
	AverageColor        models.EmotionColor `json:"average_color"`
	EmotionDistribution map[string]int      `json:"emotion_distribution"`
	Message             string              `json:"message"`
}

func (s *Service) Statistics(ctx context.Context, userID int64, days int) (*Statistics, error) {
	switch days {
	case 7, 14, 30:
	default:
		return nil, ErrInvalidPeriod
	}
	since := s.clock.Now().AddDate(0, 0, -days)

	var entries []models.JournalEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		entries, err = tx.EntriesSince(ctx, userID, since)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("journal.Statistics: %w", err)
	}

	stats := &Statistics{
		Period:              days,
		RecordCount:         len(entries),
		EmotionDistribution: map[string]int{},
	}
	if len(entries) == 0 {
		stats.AverageColor = palette.ColorFor(palette.DefaultEmotion, palette.DefaultIntensity)
		stats.Message = fmt.Sprintf("지난 %d일간의 기록이 없습니다.", days)
		return stats, nil
	}

	colors := make([]models.EmotionColor, 0, len(entries))
	for _, e := range entries {
		if e.Classification == nil {
			continue
		}
		colors = append(colors, e.Classification.Color)
		stats.EmotionDistribution[e.Classification.PrimaryEmotion]++
	}
	stats.AverageColor = palette.RepresentativeColor(colors).Color
	stats.Message = fmt.Sprintf("지난 %d일간의 평균 감정색은 %s입니다.", days, stats.AverageColor.Name)
	return stats, nil
}
