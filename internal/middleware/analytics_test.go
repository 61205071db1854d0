package middleware

import (
	"testing"
	"time"

	"github.com/quillhealth/quill/internal/analytics"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/state"
)

func newAnalyticsHarness(t *testing.T, now time.Time) *state.Store {
	t.Helper()
	mw, err := NewAnalyticsMiddleware(AnalyticsConfig{Clock: fixedClock(now)})
	if err != nil {
		t.Fatalf("unexpected middleware error: %v", err)
	}
	return newTestStore(mw)
}

func moodAt(id string, rank journal.MoodRank, createdAt time.Time) journal.Loggable {
	return journal.Loggable{
		ID:          id,
		Title:       "Mood",
		Category:    journal.CategoryMood,
		DateCreated: createdAt,
		Mood:        &journal.MoodDetail{Rank: rank},
	}
}

func TestAnalyticsRederivesOnLogInsertion(t *testing.T) {
	now := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)
	store := newAnalyticsHarness(t, now)

	// Derivation is pure and dispatches synchronously, so the snapshot is
	// committed by the time Send returns.
	store.Send(state.LogInserted{Log: moodAt("mood-1", journal.MoodRankNegative, now.AddDate(0, 0, -1))})

	tree := store.State()
	if !tree.Home.AnalyticsReady {
		t.Fatalf("expected an analytics snapshot")
	}
	trend := tree.Home.Analytics.HistoricalMoodRank
	if trend == nil || len(trend.Days) != analytics.TrendWindowDays {
		t.Fatalf("unexpected trend shape: %#v", trend)
	}
	yesterday := trend.Days[analytics.TrendWindowDays-2]
	if yesterday.Average == nil || *yesterday.Average != float64(journal.MoodRankNegative) {
		t.Fatalf("unexpected average for yesterday: %#v", yesterday.Average)
	}
	if trend.Days[1].Average != nil {
		t.Fatalf("days without logs must stay nil")
	}
}

func TestAnalyticsRederivesOnDeletion(t *testing.T) {
	now := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)
	store := newAnalyticsHarness(t, now)

	store.Send(state.LogInserted{Log: moodAt("mood-1", journal.MoodRankPositive, now)})
	store.Send(state.LogDeleted{ID: "mood-1"})

	trend := store.State().Home.Analytics.HistoricalMoodRank
	if trend == nil {
		t.Fatalf("expected a trend snapshot")
	}
	today := trend.Days[analytics.TrendWindowDays-1]
	if today.Average != nil {
		t.Fatalf("deleting the only log must empty its bucket, got %v", *today.Average)
	}
}

func TestAnalyticsClearsAfterRestore(t *testing.T) {
	now := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)
	store := newAnalyticsHarness(t, now)

	store.Send(state.LogInserted{Log: moodAt("mood-1", journal.MoodRankPositive, now)})
	store.Send(state.RestoreSucceeded{User: journal.User{ID: "user-b", DateCreated: now}})

	trend := store.State().Home.Analytics.HistoricalMoodRank
	if trend == nil {
		t.Fatalf("expected a rederived snapshot after restore")
	}
	for i, day := range trend.Days {
		if day.Average != nil {
			t.Fatalf("bucket %d must be empty after the restore wipe", i)
		}
	}
}
