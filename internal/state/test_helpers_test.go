package state

import (
	"time"

	"github.com/quillhealth/quill/internal/journal"
)

func noteLog(id, title string, createdAt time.Time) journal.Loggable {
	return journal.Loggable{
		ID:          id,
		Title:       title,
		Category:    journal.CategoryNote,
		DateCreated: createdAt,
	}
}

func moodLog(id string, rank journal.MoodRank, createdAt time.Time) journal.Loggable {
	return journal.Loggable{
		ID:          id,
		Title:       "Mood",
		Category:    journal.CategoryMood,
		DateCreated: createdAt,
		Mood:        &journal.MoodDetail{Rank: rank},
	}
}

func catalogItem(id, name string, category journal.Category) journal.LogSearchable {
	return journal.LogSearchable{
		ID:             id,
		Name:           name,
		ParentCategory: category,
		CreatedBy:      journal.CreatedByMaster,
	}
}

func reminderAt(id string, fireAt time.Time, interval time.Duration) journal.LogReminder {
	return journal.LogReminder{
		ID:           id,
		ReminderDate: fireAt,
		Interval:     interval,
		Template:     noteLog("template-"+id, "Check in", fireAt),
	}
}
