// Package aggregate maintains the rolling per-user window of daily items and
// its derived negative ratio and one line summary.
package aggregate

import (
	"math"
	"strings"
	"time"

	"moodlog/internal/models"
)

const (
	DefaultPeriodDays = 7
	MaxSummaryRunes   = 200
	summaryItems      = 3
)

// View is the decoded form of a window used by callers.
type View struct {
	PeriodDays     int                    `json:"period"`
	Items          []models.AggregateItem `json:"items"`
	NegativeRatio  float64                `json:"negative_ratio"`
	OneLineSummary string                 `json:"one_line_summary"`
}

// Empty is the explicit value returned when no row exists.
func Empty(periodDays int) View {
	return View{PeriodDays: periodDays, Items: []models.AggregateItem{}}
}

// Read decodes a stored row. A nil row yields Empty.
func Read(row *models.WeeklyAggregate, periodDays int) View {
	if row == nil {
		return Empty(periodDays)
	}
	items := Normalize(row.Items)
	return View{
		PeriodDays:     row.PeriodDays,
		Items:          items,
		NegativeRatio:  NegativeRatio(items),
		OneLineSummary: OneLineSummary(items),
	}
}

// Upsert folds one day into the window. An existing item with the same date
// is replaced and the new item becomes the most recent. When the window
// exceeds periodDays the oldest dates are evicted.
func Upsert(row *models.WeeklyAggregate, userID int64, periodDays int, date, summary, emotion string, now time.Time) *models.WeeklyAggregate {
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}

	var items []models.AggregateItem
	if row != nil {
		items = Normalize(row.Items)
	}

	kept := items[:0]
	for _, it := range items {
		if it.Date != date {
			kept = append(kept, it)
		}
	}
	items = append(kept, models.AggregateItem{
		Date:           date,
		Summary:        summary,
		PrimaryEmotion: emotion,
	})

	for len(items) > periodDays {
		items = removeOldest(items)
	}

	return &models.WeeklyAggregate{
		UserID:         userID,
		PeriodDays:     periodDays,
		Items:          Encode(items),
		NegativeRatio:  NegativeRatio(items),
		OneLineSummary: OneLineSummary(items),
		UpdatedAt:      now,
	}
}

// Replace rewrites the item for date in place, keeping its position. It
// reports false when the date is no longer in the window.
func Replace(row *models.WeeklyAggregate, date, summary, emotion string, now time.Time) (*models.WeeklyAggregate, bool) {
	if row == nil {
		return nil, false
	}
	items := Normalize(row.Items)
	for i := range items {
		if items[i].Date == date {
			items[i].Summary = summary
			items[i].PrimaryEmotion = emotion
			return rebuild(row, items, now), true
		}
	}
	return row, false
}

// Remove drops the item for date. It reports false when nothing matched.
func Remove(row *models.WeeklyAggregate, date string, now time.Time) (*models.WeeklyAggregate, bool) {
	if row == nil {
		return nil, false
	}
	items := Normalize(row.Items)
	kept := items[:0]
	for _, it := range items {
		if it.Date != date {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return row, false
	}
	return rebuild(row, kept, now), true
}

func rebuild(row *models.WeeklyAggregate, items []models.AggregateItem, now time.Time) *models.WeeklyAggregate {
	return &models.WeeklyAggregate{
		UserID:         row.UserID,
		PeriodDays:     row.PeriodDays,
		Items:          Encode(items),
		NegativeRatio:  NegativeRatio(items),
		OneLineSummary: OneLineSummary(items),
		UpdatedAt:      now,
	}
}

// removeOldest drops the item with the smallest date; equal dates drop the
// earliest inserted.
func removeOldest(items []models.AggregateItem) []models.AggregateItem {
	oldest := 0
	for i, it := range items {
		if it.Date < items[oldest].Date {
			oldest = i
		}
	}
	return append(items[:oldest], items[oldest+1:]...)
}

// CountNegative counts items whose emotion is in the negative label set.
func CountNegative(items []models.AggregateItem) int {
	n := 0
	for _, it := range items {
		if models.IsNegative(it.PrimaryEmotion) {
			n++
		}
	}
	return n
}

// NegativeRatio is rounded to three decimals; zero for an empty window.
func NegativeRatio(items []models.AggregateItem) float64 {
	if len(items) == 0 {
		return 0
	}
	return Round3(float64(CountNegative(items)) / float64(len(items)))
}

func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// OneLineSummary joins the last three non-empty summaries with a space and
// truncates the result to 200 characters.
func OneLineSummary(items []models.AggregateItem) string {
	var summaries []string
	for _, it := range items {
		if s := it.Summary; s != "" {
			summaries = append(summaries, s)
		}
	}
	if len(summaries) > summaryItems {
		summaries = summaries[len(summaries)-summaryItems:]
	}
	return truncateRunes(strings.Join(summaries, " "), MaxSummaryRunes)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FromEntries builds a view from raw journal entries when no stored window
// exists. Entries must be ordered oldest first; only the last periodDays are used.
func FromEntries(entries []models.JournalEntry, periodDays int) View {
	if len(entries) > periodDays {
		entries = entries[len(entries)-periodDays:]
	}
	items := make([]models.AggregateItem, 0, len(entries))
	for _, e := range entries {
		emotion := ""
		if e.Classification != nil {
			emotion = e.Classification.PrimaryEmotion
		}
		items = append(items, models.AggregateItem{
			Date:           e.EntryDate,
			Summary:        strings.TrimSpace(e.Summary),
			PrimaryEmotion: emotion,
		})
	}
	return View{
		PeriodDays:     periodDays,
		Items:          items,
		NegativeRatio:  NegativeRatio(items),
		OneLineSummary: OneLineSummary(items),
	}
}
