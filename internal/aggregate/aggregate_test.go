package aggregate

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"moodlog/internal/models"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func day(i int) string {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("2006-01-02")
}

func TestUpsert_SameDateReplaces(t *testing.T) {
	row := Upsert(nil, 1, 7, day(0), "first", models.EmotionJoy, now)
	row = Upsert(row, 1, 7, day(0), "second", models.EmotionSadness, now)

	v := Read(row, 7)
	if len(v.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(v.Items))
	}
	if v.Items[0].Summary != "second" || v.Items[0].PrimaryEmotion != models.EmotionSadness {
		t.Errorf("item = %+v", v.Items[0])
	}
}

func TestUpsert_EvictsOldestBeyondPeriod(t *testing.T) {
	var row *models.WeeklyAggregate
	for i := 0; i < 8; i++ {
		row = Upsert(row, 1, 7, day(i), fmt.Sprintf("s%d", i), models.EmotionJoy, now)
	}
	v := Read(row, 7)
	if len(v.Items) != 7 {
		t.Fatalf("got %d items, want 7", len(v.Items))
	}
	for _, it := range v.Items {
		if it.Date == day(0) {
			t.Errorf("oldest date %s was not evicted", day(0))
		}
	}
	if v.Items[0].Date != day(1) || v.Items[6].Date != day(7) {
		t.Errorf("window = %s..%s", v.Items[0].Date, v.Items[6].Date)
	}
}

func TestUpsert_EvictsByDateNotInsertion(t *testing.T) {
	var row *models.WeeklyAggregate
	row = Upsert(row, 1, 2, day(5), "", models.EmotionJoy, now)
	row = Upsert(row, 1, 2, day(1), "", models.EmotionJoy, now)
	row = Upsert(row, 1, 2, day(3), "", models.EmotionJoy, now)

	v := Read(row, 2)
	if len(v.Items) != 2 || v.Items[0].Date != day(5) || v.Items[1].Date != day(3) {
		t.Errorf("items = %+v", v.Items)
	}
}

func TestNegativeRatio_FiveOfSeven(t *testing.T) {
	emotions := []string{
		models.EmotionSadness, models.EmotionAnger, "우울", models.EmotionFear,
		models.EmotionDisgust, models.EmotionJoy, models.EmotionTrust,
	}
	var row *models.WeeklyAggregate
	for i, e := range emotions {
		row = Upsert(row, 1, 7, day(i), "", e, now)
	}
	if row.NegativeRatio != 0.714 {
		t.Errorf("negative_ratio = %v, want 0.714", row.NegativeRatio)
	}
}

func TestOneLineSummary(t *testing.T) {
	items := []models.AggregateItem{
		{Summary: "a"}, {Summary: "b"}, {Summary: ""}, {Summary: "c"}, {Summary: "d"},
	}
	if got := OneLineSummary(items); got != "b c d" {
		t.Errorf("summary = %q", got)
	}

	long := strings.Repeat("가", 150)
	got := OneLineSummary([]models.AggregateItem{{Summary: long}, {Summary: long}})
	if n := len([]rune(got)); n != MaxSummaryRunes {
		t.Errorf("summary has %d runes, want %d", n, MaxSummaryRunes)
	}
}

func TestRead_NilRowIsEmpty(t *testing.T) {
	v := Read(nil, 7)
	if v.Items == nil || len(v.Items) != 0 || v.NegativeRatio != 0 || v.OneLineSummary != "" {
		t.Errorf("empty view = %+v", v)
	}
	b, _ := json.Marshal(v)
	if !strings.Contains(string(b), `"items":[]`) {
		t.Errorf("empty items should encode as []: %s", b)
	}
}

func TestNormalize_DropsUnparseable(t *testing.T) {
	raws := []json.RawMessage{
		json.RawMessage(`{"date":"2025-03-01","summary":"ok","primary_emotion":"슬픔"}`),
		json.RawMessage(`"{\"date\":\"2025-03-02\",\"primary_emotion\":\"기쁨\"}"`),
		json.RawMessage(`"not json"`),
		json.RawMessage(`42`),
		json.RawMessage(`[1,2]`),
		json.RawMessage(`{"date": 7}`),
		json.RawMessage(``),
	}
	items := Normalize(raws)
	if len(items) != 2 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}
	if items[1].Date != "2025-03-02" || items[1].PrimaryEmotion != models.EmotionJoy {
		t.Errorf("string-wrapped item = %+v", items[1])
	}
}

func TestFromEntries_UsesLastPeriod(t *testing.T) {
	var entries []models.JournalEntry
	for i := 0; i < 9; i++ {
		entries = append(entries, models.JournalEntry{
			EntryDate:      day(i),
			Summary:        fmt.Sprintf(" s%d ", i),
			Classification: &models.Classification{PrimaryEmotion: models.EmotionSadness},
		})
	}
	v := FromEntries(entries, 7)
	if len(v.Items) != 7 || v.Items[0].Date != day(2) {
		t.Fatalf("items = %+v", v.Items)
	}
	if v.NegativeRatio != 1 {
		t.Errorf("ratio = %v", v.NegativeRatio)
	}
	if v.OneLineSummary != "s6 s7 s8" {
		t.Errorf("summary = %q", v.OneLineSummary)
	}
}

func TestReplace_KeepsPosition(t *testing.T) {
	var row *models.WeeklyAggregate
	for i := 0; i < 3; i++ {
		row = Upsert(row, 1, 7, day(i), fmt.Sprintf("s%d", i), models.EmotionJoy, now)
	}

	row, ok := Replace(row, day(0), "rewritten", models.EmotionSadness, now)
	if !ok {
		t.Fatal("Replace reported no match")
	}
	v := Read(row, 7)
	if len(v.Items) != 3 || v.Items[0].Date != day(0) || v.Items[0].Summary != "rewritten" {
		t.Fatalf("items = %+v", v.Items)
	}
	if v.NegativeRatio != 0.333 {
		t.Errorf("NegativeRatio = %v, want 0.333", v.NegativeRatio)
	}

	if _, ok := Replace(row, day(9), "x", models.EmotionJoy, now); ok {
		t.Error("Replace matched a date outside the window")
	}
}

func TestRemove(t *testing.T) {
	row := Upsert(nil, 1, 7, day(0), "a", models.EmotionSadness, now)
	row = Upsert(row, 1, 7, day(1), "b", models.EmotionJoy, now)

	row, ok := Remove(row, day(0), now)
	if !ok {
		t.Fatal("Remove reported no match")
	}
	v := Read(row, 7)
	if len(v.Items) != 1 || v.Items[0].Date != day(1) {
		t.Fatalf("items = %+v", v.Items)
	}
	if v.NegativeRatio != 0 || v.OneLineSummary != "b" {
		t.Errorf("derived fields = %v %q", v.NegativeRatio, v.OneLineSummary)
	}
	if _, ok := Remove(row, day(0), now); ok {
		t.Error("second Remove matched")
	}
	if got, ok := Remove(nil, day(0), now); ok || got != nil {
		t.Error("Remove on nil row")
	}
}
