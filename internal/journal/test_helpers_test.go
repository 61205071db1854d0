package journal

import (
	"testing"
	"time"
)

func mustLogID(t *testing.T, value string) LogID {
	t.Helper()
	id, err := NewLogID(value)
	if err != nil {
		t.Fatalf("unexpected log id error: %v", err)
	}
	return id
}

func moodEntry(id string, rank MoodRank, createdAt time.Time) Loggable {
	return Loggable{
		ID:          id,
		Title:       "Mood",
		Category:    CategoryMood,
		DateCreated: createdAt,
		Mood:        &MoodDetail{Rank: rank},
	}
}

func noteEntry(id, title string, createdAt time.Time) Loggable {
	return Loggable{
		ID:          id,
		Title:       title,
		Category:    CategoryNote,
		DateCreated: createdAt,
	}
}
