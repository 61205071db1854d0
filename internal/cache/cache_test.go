package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/quillhealth/quill/internal/journal"
	"go.uber.org/zap"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	store, err := New(Config{Database: db, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("unexpected cache error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close() //nolint:errcheck
		}
	})
	return store
}

func testNote(id, title string, createdAt time.Time) journal.Loggable {
	return journal.Loggable{
		ID:          id,
		Title:       title,
		Category:    journal.CategoryNote,
		DateCreated: createdAt,
	}
}

func testMood(id string, rank journal.MoodRank, createdAt time.Time) journal.Loggable {
	return journal.Loggable{
		ID:          id,
		Title:       "Mood",
		Category:    journal.CategoryMood,
		DateCreated: createdAt,
		Mood:        &journal.MoodDetail{Rank: rank},
	}
}

func TestSaveLogRoundTripsEveryCategory(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	entries := []journal.Loggable{
		testNote("note-1", "Slept well", createdAt),
		testMood("mood-1", journal.MoodRankNegative, createdAt.Add(time.Minute)),
		{
			ID: "med-1", Title: "Ibuprofen", Category: journal.CategoryMedication, DateCreated: createdAt.Add(2 * time.Minute),
			Medication: &journal.MedicationDetail{MedicationID: "master-med-ibuprofen", Dosage: "200mg"},
		},
		{
			ID: "nut-1", Title: "Water", Category: journal.CategoryNutrition, DateCreated: createdAt.Add(3 * time.Minute),
			Nutrition: &journal.NutritionDetail{NutritionID: "master-nut-water", Amount: "500ml"},
		},
		{
			ID: "sym-1", Title: "Headache", Category: journal.CategorySymptom, DateCreated: createdAt.Add(4 * time.Minute),
			Symptom: &journal.SymptomDetail{SymptomID: "master-sym-headache", Severity: 30},
		},
		{
			ID: "act-1", Title: "Walking", Category: journal.CategoryActivity, DateCreated: createdAt.Add(5 * time.Minute),
			Activity: &journal.ActivityDetail{ActivityID: "master-act-walking", DurationSeconds: 1800},
		},
	}
	for _, entry := range entries {
		if err := store.SaveLog(ctx, entry); err != nil {
			t.Fatalf("unexpected save error for %q: %v", entry.ID, err)
		}
	}

	logs, err := store.QueryLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(logs) != len(entries) {
		t.Fatalf("expected %d logs, got %d", len(entries), len(logs))
	}
	// Newest first.
	if logs[0].ID != "act-1" || logs[len(logs)-1].ID != "note-1" {
		t.Fatalf("unexpected order: first=%s last=%s", logs[0].ID, logs[len(logs)-1].ID)
	}
	for _, log := range logs {
		if err := log.Validate(); err != nil {
			t.Fatalf("decoded log %q failed validation: %v", log.ID, err)
		}
	}
	if logs[len(logs)-2].Mood == nil || logs[len(logs)-2].Mood.Rank != journal.MoodRankNegative {
		t.Fatalf("mood payload did not round-trip: %#v", logs[len(logs)-2])
	}
}

func TestSaveLogReplacesExistingID(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := store.SaveLog(ctx, testNote("note-1", "first", createdAt)); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if err := store.SaveLog(ctx, testNote("note-1", "edited", createdAt)); err != nil {
		t.Fatalf("unexpected re-save error: %v", err)
	}

	logs, err := store.QueryLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(logs) != 1 || logs[0].Title != "edited" {
		t.Fatalf("expected the edited record only, got %#v", logs)
	}
}

func TestSaveLogRejectsInvalidEntries(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()

	broken := journal.Loggable{ID: "mood-1", Category: journal.CategoryMood, DateCreated: time.Now()}
	err := store.SaveLog(ctx, broken)
	if err == nil {
		t.Fatalf("expected encode failure for payload mismatch")
	}
	var cacheErr *Error
	if !errors.As(err, &cacheErr) || cacheErr.Code() != "cache.save_log.encode_failed" {
		t.Fatalf("unexpected error shape: %v", err)
	}
}

func TestQueryLogsAppliesFiltersAndCap(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()
	dayStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < DefaultQueryLimit+10; i++ {
		entry := testNote(fmt.Sprintf("note-%03d", i), "entry", dayStart.Add(time.Duration(i)*time.Minute))
		if err := store.SaveLog(ctx, entry); err != nil {
			t.Fatalf("unexpected save error: %v", err)
		}
	}
	if err := store.SaveLog(ctx, testMood("mood-1", journal.MoodRankNeutral, dayStart.Add(30*time.Minute))); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	capped, err := store.QueryLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(capped) != DefaultQueryLimit {
		t.Fatalf("expected the cap of %d, got %d", DefaultQueryLimit, len(capped))
	}

	oversized, err := store.QueryLogs(ctx, QueryFilter{Limit: DefaultQueryLimit * 2})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(oversized) != DefaultQueryLimit {
		t.Fatalf("an oversized limit must clamp to %d, got %d", DefaultQueryLimit, len(oversized))
	}

	mood := journal.CategoryMood
	byCategory, err := store.QueryLogs(ctx, QueryFilter{Category: &mood})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].ID != "mood-1" {
		t.Fatalf("unexpected category result: %#v", byCategory)
	}

	since := dayStart.Add(5 * time.Minute)
	until := dayStart.Add(8 * time.Minute)
	ranged, err := store.QueryLogs(ctx, QueryFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(ranged) != 4 {
		t.Fatalf("expected 4 logs in the inclusive range, got %d", len(ranged))
	}
	for i := 1; i < len(ranged); i++ {
		if ranged[i].DateCreated.After(ranged[i-1].DateCreated) {
			t.Fatalf("results must be newest first")
		}
	}
}

func TestDeleteLogRemovesPrimaryRecord(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := store.SaveLog(ctx, testNote("note-1", "entry", createdAt)); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if err := store.DeleteLog(ctx, "note-1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	logs, err := store.QueryLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty cache after delete, got %d logs", len(logs))
	}
	if err := store.DeleteLog(ctx, "  "); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestDeleteLogCleansUpCategorySideRecords(t *testing.T) {
	t.Skip("delete currently removes the primary record only; side-record cleanup is tracked in DeleteLog")
}

func TestReminderRoundTripAndOrder(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()
	fireAt := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	later := journal.LogReminder{
		ID:           "rem-2",
		ReminderDate: fireAt.Add(48 * time.Hour),
		Template:     testNote("template-2", "Check in", fireAt),
	}
	sooner := journal.LogReminder{
		ID:           "rem-1",
		ReminderDate: fireAt,
		Interval:     24 * time.Hour,
		Template:     testMood("template-1", journal.MoodRankNeutral, fireAt),
	}
	for _, reminder := range []journal.LogReminder{later, sooner} {
		if err := store.SaveReminder(ctx, reminder); err != nil {
			t.Fatalf("unexpected save error for %q: %v", reminder.ID, err)
		}
	}

	reminders, err := store.QueryReminders(ctx)
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(reminders) != 2 || reminders[0].ID != "rem-1" {
		t.Fatalf("reminders must come back fire-date ascending: %#v", reminders)
	}
	if reminders[0].Interval != 24*time.Hour {
		t.Fatalf("interval did not round-trip: %v", reminders[0].Interval)
	}
	if reminders[0].Template.Mood == nil || reminders[0].Template.Mood.Rank != journal.MoodRankNeutral {
		t.Fatalf("template payload did not round-trip: %#v", reminders[0].Template)
	}

	if err := store.DeleteReminder(ctx, "rem-1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	remaining, err := store.QueryReminders(ctx)
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "rem-2" {
		t.Fatalf("unexpected remaining reminders: %#v", remaining)
	}
}

func TestActiveUserSingleRecordSemantics(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()

	if _, err := store.ActiveUser(ctx); !errors.Is(err, ErrNoActiveUser) {
		t.Fatalf("expected ErrNoActiveUser on a fresh cache, got %v", err)
	}

	first := journal.User{ID: "user-a", DateCreated: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	if err := store.SaveActiveUser(ctx, first); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	second := journal.User{
		ID:          "user-b",
		DateCreated: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		LinkedAccount: &journal.ExternalAccountRef{
			AccountID:   "acct-1",
			DisplayName: "B",
			Email:       "b@example.com",
		},
	}
	if err := store.SaveActiveUser(ctx, second); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	stored, err := store.ActiveUser(ctx)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if stored.ID != "user-b" {
		t.Fatalf("saving a new user must replace the previous one, got %q", stored.ID)
	}
	if stored.LinkedAccount == nil || stored.LinkedAccount.AccountID != "acct-1" {
		t.Fatalf("linked account did not round-trip: %#v", stored.LinkedAccount)
	}

	if err := store.DeleteActiveUser(ctx); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := store.ActiveUser(ctx); !errors.Is(err, ErrNoActiveUser) {
		t.Fatalf("expected ErrNoActiveUser after delete, got %v", err)
	}
}

func TestResetAllWipesEveryTable(t *testing.T) {
	store := openTestCache(t)
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := store.SaveLog(ctx, testNote("note-1", "entry", createdAt)); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	reminder := journal.LogReminder{
		ID:           "rem-1",
		ReminderDate: createdAt.Add(24 * time.Hour),
		Template:     testNote("template-1", "Check in", createdAt),
	}
	if err := store.SaveReminder(ctx, reminder); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if err := store.SaveActiveUser(ctx, journal.User{ID: "user-a", DateCreated: createdAt}); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	if err := store.ResetAll(ctx); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}

	logs, err := store.QueryLogs(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	reminders, err := store.QueryReminders(ctx)
	if err != nil {
		t.Fatalf("unexpected query error: %v", err)
	}
	if len(logs) != 0 || len(reminders) != 0 {
		t.Fatalf("reset must empty logs and reminders, got %d/%d", len(logs), len(reminders))
	}
	if _, err := store.ActiveUser(ctx); !errors.Is(err, ErrNoActiveUser) {
		t.Fatalf("reset must remove the active user, got %v", err)
	}
}
