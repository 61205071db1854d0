package state

import (
	"sort"
	"strings"
	"time"

	"github.com/quillhealth/quill/internal/journal"
)

// SearchStatus is the two-state machine of the catalog search.
type SearchStatus string

const (
	SearchIdle      SearchStatus = "idle"
	SearchSearching SearchStatus = "searching"
)

// AppState is the single authoritative state tree. It is a value: the reducer
// returns a replacement on every action and nothing mutates it in place.
type AppState struct {
	Global             GlobalState
	Home               HomeState
	CreateLog          CreateLogState
	ViewLogs           ViewLogsState
	LogDetails         LogDetailsState
	ReminderDetails    ReminderDetailsState
	Settings           SettingsState
	GlobalLogs         LogCollection
	GlobalLogReminders ReminderCollection
}

// NewAppState returns the default tree created once at process start.
func NewAppState() AppState {
	return AppState{
		CreateLog: NewCreateLogState(),
	}
}

// GlobalState holds session-wide values outside any one screen.
type GlobalState struct {
	ActiveUser     *journal.User
	UserLoadFailed bool
}

// HomeState holds the home screen slice.
type HomeState struct {
	Analytics      journal.LogAnalytics
	AnalyticsReady bool
}

// CreateLogState is the create-log form plus its catalog search.
type CreateLogState struct {
	SelectedCategory journal.Category
	Title            string
	Notes            string

	SearchStatus   SearchStatus
	RawQuery       string
	SearchResults  []journal.LogSearchable
	SelectedResult *journal.LogSearchable

	MoodRank *journal.MoodRank
	Severity *int
	Dosage   string
	Amount   string
	Duration time.Duration

	Saving         bool
	SaveErrorShown bool
}

// NewCreateLogState returns the default form value.
func NewCreateLogState() CreateLogState {
	return CreateLogState{
		SelectedCategory: journal.CategoryNote,
		SearchStatus:     SearchIdle,
	}
}

// CanSave is the form-validity predicate. Saves are ignored while it is
// false, so validation failures never reach the data layer.
func (s CreateLogState) CanSave() bool {
	if s.Saving {
		return false
	}
	switch s.SelectedCategory {
	case journal.CategoryNote:
		return strings.TrimSpace(s.Title) != "" || strings.TrimSpace(s.Notes) != ""
	case journal.CategoryMood:
		return s.MoodRank != nil
	case journal.CategoryMedication:
		return s.SelectedResult != nil && strings.TrimSpace(s.Dosage) != ""
	case journal.CategoryNutrition:
		return s.SelectedResult != nil && strings.TrimSpace(s.Amount) != ""
	case journal.CategorySymptom:
		return s.SelectedResult != nil && s.Severity != nil
	case journal.CategoryActivity:
		return s.SelectedResult != nil && s.Duration > 0
	}
	return false
}

// BuildLoggable materializes the form into a Loggable with the supplied id
// and creation time. The caller must have checked CanSave.
func (s CreateLogState) BuildLoggable(id string, createdAt time.Time) (journal.Loggable, error) {
	log := journal.Loggable{
		ID:          id,
		Title:       strings.TrimSpace(s.Title),
		Notes:       strings.TrimSpace(s.Notes),
		Category:    s.SelectedCategory,
		DateCreated: createdAt,
	}
	if log.Title == "" && s.SelectedResult != nil {
		log.Title = s.SelectedResult.Name
	}
	switch s.SelectedCategory {
	case journal.CategoryMood:
		log.Mood = &journal.MoodDetail{Rank: *s.MoodRank}
	case journal.CategoryMedication:
		log.Medication = &journal.MedicationDetail{
			MedicationID: s.SelectedResult.ID,
			Dosage:       strings.TrimSpace(s.Dosage),
		}
	case journal.CategoryNutrition:
		log.Nutrition = &journal.NutritionDetail{
			NutritionID: s.SelectedResult.ID,
			Amount:      strings.TrimSpace(s.Amount),
		}
	case journal.CategorySymptom:
		log.Symptom = &journal.SymptomDetail{
			SymptomID: s.SelectedResult.ID,
			Severity:  *s.Severity,
		}
	case journal.CategoryActivity:
		log.Activity = &journal.ActivityDetail{
			ActivityID:      s.SelectedResult.ID,
			DurationSeconds: int64(s.Duration / time.Second),
		}
	}
	if err := log.Validate(); err != nil {
		return journal.Loggable{}, err
	}
	return log, nil
}

// ViewLogsState holds the day-browsing slice.
type ViewLogsState struct {
	SelectedDate   time.Time
	FilterCategory *journal.Category
	ErrorShown     bool
}

// LogDetailsState holds the single-log detail slice.
type LogDetailsState struct {
	Log        *journal.Loggable
	Deleting   bool
	ErrorShown bool
}

// ReminderDetailsState holds the reminder editor slice. Draft has an empty id
// until the first save assigns one.
type ReminderDetailsState struct {
	Draft      *journal.LogReminder
	Saving     bool
	ErrorShown bool
}

// SettingsState holds account linking and restore progress.
type SettingsState struct {
	Linking    bool
	Restoring  bool
	ErrorShown bool
}

// LogCollection is the shared, deduplicated log collection every screen reads
// from. Mutation helpers return replacements, keeping the value semantics of
// the tree.
type LogCollection struct {
	Logs      []journal.Loggable
	Retrieved bool
}

// Merging folds new logs into the collection, replacing entries with matching
// ids, and returns the result sorted by creation date descending.
func (c LogCollection) Merging(logs []journal.Loggable) LogCollection {
	byID := make(map[string]int, len(c.Logs))
	merged := make([]journal.Loggable, len(c.Logs))
	copy(merged, c.Logs)
	for i, log := range merged {
		byID[log.ID] = i
	}
	for _, log := range logs {
		if i, ok := byID[log.ID]; ok {
			merged[i] = log
			continue
		}
		byID[log.ID] = len(merged)
		merged = append(merged, log)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DateCreated.After(merged[j].DateCreated)
	})
	return LogCollection{Logs: merged, Retrieved: true}
}

// Inserting adds or replaces a single log.
func (c LogCollection) Inserting(log journal.Loggable) LogCollection {
	return c.Merging([]journal.Loggable{log})
}

// Deleting removes the log with the given id, if present.
func (c LogCollection) Deleting(id string) LogCollection {
	remaining := make([]journal.Loggable, 0, len(c.Logs))
	for _, log := range c.Logs {
		if log.ID != id {
			remaining = append(remaining, log)
		}
	}
	return LogCollection{Logs: remaining, Retrieved: c.Retrieved}
}

// ForDay filters to logs created on the same UTC calendar day as date,
// optionally narrowed to one category.
func (c LogCollection) ForDay(date time.Time, category *journal.Category) []journal.Loggable {
	day := date.UTC()
	matched := make([]journal.Loggable, 0, len(c.Logs))
	for _, log := range c.Logs {
		created := log.DateCreated.UTC()
		if created.Year() != day.Year() || created.YearDay() != day.YearDay() {
			continue
		}
		if category != nil && log.Category != *category {
			continue
		}
		matched = append(matched, log)
	}
	return matched
}

// ReminderCollection is the shared reminder collection, kept sorted by fire
// date ascending.
type ReminderCollection struct {
	Reminders []journal.LogReminder
	Retrieved bool
}

// Replacing swaps the whole collection for freshly queried reminders.
func (c ReminderCollection) Replacing(reminders []journal.LogReminder) ReminderCollection {
	replaced := make([]journal.LogReminder, len(reminders))
	copy(replaced, reminders)
	sortReminders(replaced)
	return ReminderCollection{Reminders: replaced, Retrieved: true}
}

// Inserting adds or replaces a single reminder by id.
func (c ReminderCollection) Inserting(reminder journal.LogReminder) ReminderCollection {
	merged := make([]journal.LogReminder, 0, len(c.Reminders)+1)
	replaced := false
	for _, existing := range c.Reminders {
		if existing.ID == reminder.ID {
			merged = append(merged, reminder)
			replaced = true
			continue
		}
		merged = append(merged, existing)
	}
	if !replaced {
		merged = append(merged, reminder)
	}
	sortReminders(merged)
	return ReminderCollection{Reminders: merged, Retrieved: true}
}

// Deleting removes the reminder with the given id, if present.
func (c ReminderCollection) Deleting(id string) ReminderCollection {
	remaining := make([]journal.LogReminder, 0, len(c.Reminders))
	for _, reminder := range c.Reminders {
		if reminder.ID != id {
			remaining = append(remaining, reminder)
		}
	}
	return ReminderCollection{Reminders: remaining, Retrieved: c.Retrieved}
}

func sortReminders(reminders []journal.LogReminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].ReminderDate.Before(reminders[j].ReminderDate)
	})
}
