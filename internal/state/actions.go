// Package state implements the unidirectional application state engine: a
// closed action taxonomy, the state tree, the pure reducer and the store that
// serializes dispatch and fans state out to observers. Side effects live in
// middleware registered on the store; the reducer itself never performs I/O.
package state

import (
	"time"

	"github.com/quillhealth/quill/internal/journal"
)

// Action is a tagged value describing an intended state transition or the
// result of a completed side effect. The set of actions is closed: every
// action embeds exactly one feature marker, which the top-level reducer uses
// as its first-level discriminant.
type Action interface {
	isAction()
}

// GlobalAction covers app lifecycle and the shared log/reminder collections.
type GlobalAction interface {
	Action
	isGlobal()
}

// HomeAction covers the home screen slice.
type HomeAction interface {
	Action
	isHome()
}

// CreateLogAction covers the create-log form and its catalog search.
type CreateLogAction interface {
	Action
	isCreateLog()
}

// ViewLogsAction covers the day-browsing slice.
type ViewLogsAction interface {
	Action
	isViewLogs()
}

// LogDetailsAction covers the single-log detail slice.
type LogDetailsAction interface {
	Action
	isLogDetails()
}

// ReminderDetailsAction covers the reminder editor slice.
type ReminderDetailsAction interface {
	Action
	isReminderDetails()
}

// SettingsAction covers account linking and restore.
type SettingsAction interface {
	Action
	isSettings()
}

type globalAction struct{}

func (globalAction) isAction() {}
func (globalAction) isGlobal() {}

type homeAction struct{}

func (homeAction) isAction() {}
func (homeAction) isHome()   {}

type createLogAction struct{}

func (createLogAction) isAction()    {}
func (createLogAction) isCreateLog() {}

type viewLogsAction struct{}

func (viewLogsAction) isAction()   {}
func (viewLogsAction) isViewLogs() {}

type logDetailsAction struct{}

func (logDetailsAction) isAction()     {}
func (logDetailsAction) isLogDetails() {}

type reminderDetailsAction struct{}

func (reminderDetailsAction) isAction()          {}
func (reminderDetailsAction) isReminderDetails() {}

type settingsAction struct{}

func (settingsAction) isAction()   {}
func (settingsAction) isSettings() {}

// AppLaunched starts the session: middleware loads or creates the active user
// and fetches the shared collections.
type AppLaunched struct{ globalAction }

// ActiveUserLoaded commits the resolved active user.
type ActiveUserLoaded struct {
	globalAction
	User journal.User
}

// ActiveUserLoadFailed records that no active user could be resolved.
type ActiveUserLoadFailed struct {
	globalAction
	Err error
}

// LogsRetrieved merges freshly queried logs into the shared collection and
// marks it retrieved.
type LogsRetrieved struct {
	globalAction
	Logs []journal.Loggable
}

// LogInserted adds a single saved log to the shared collection.
type LogInserted struct {
	globalAction
	Log journal.Loggable
}

// LogDeleted removes a log from the shared collection by id.
type LogDeleted struct {
	globalAction
	ID string
}

// RemindersRetrieved replaces the shared reminder collection.
type RemindersRetrieved struct {
	globalAction
	Reminders []journal.LogReminder
}

// ReminderInserted adds or replaces a reminder in the shared collection.
type ReminderInserted struct {
	globalAction
	Reminder journal.LogReminder
}

// ReminderDeleted removes a reminder from the shared collection by id.
type ReminderDeleted struct {
	globalAction
	ID string
}

// HomeAppeared triggers the recent-log fetch for the home screen.
type HomeAppeared struct{ homeAction }

// AnalyticsUpdated commits a freshly derived analytics snapshot.
type AnalyticsUpdated struct {
	homeAction
	Analytics journal.LogAnalytics
}

// CreateLogOpened resets the form and starts a new search session.
type CreateLogOpened struct{ createLogAction }

// CategorySelected picks the category the form is building.
type CategorySelected struct {
	createLogAction
	Category journal.Category
}

// TitleChanged edits the form title.
type TitleChanged struct {
	createLogAction
	Title string
}

// NotesChanged edits the form notes.
type NotesChanged struct {
	createLogAction
	Notes string
}

// SearchQueryChanged carries a raw search edit. The slice flips to searching
// immediately; the debounced remote call happens in middleware.
type SearchQueryChanged struct {
	createLogAction
	Query string
}

// SearchCompleted commits catalog results and returns the slice to idle.
type SearchCompleted struct {
	createLogAction
	Results []journal.LogSearchable
}

// SearchFailed records a catalog search error and returns the slice to idle.
type SearchFailed struct {
	createLogAction
	Err error
}

// SearchResultSelected attaches the indexed result to the form. A result
// whose category contradicts the selected category is a fatal integrity
// violation.
type SearchResultSelected struct {
	createLogAction
	Index int
}

// CreateSearchItemPressed asks the remote catalog to add a user-owned entry.
type CreateSearchItemPressed struct {
	createLogAction
	Name string
}

// CreateSearchItemSucceeded attaches the newly created catalog entry.
type CreateSearchItemSucceeded struct {
	createLogAction
	Item journal.LogSearchable
}

// CreateSearchItemFailed records a catalog creation error.
type CreateSearchItemFailed struct {
	createLogAction
	Err error
}

// MoodRankSelected sets the mood payload.
type MoodRankSelected struct {
	createLogAction
	Rank journal.MoodRank
}

// SeveritySelected sets the symptom severity payload.
type SeveritySelected struct {
	createLogAction
	Severity int
}

// DosageChanged sets the medication dosage payload.
type DosageChanged struct {
	createLogAction
	Dosage string
}

// AmountChanged sets the nutrition amount payload.
type AmountChanged struct {
	createLogAction
	Amount string
}

// DurationChanged sets the activity duration payload.
type DurationChanged struct {
	createLogAction
	Duration time.Duration
}

// SavePressed asks middleware to persist the form. Ignored while the form
// validity predicate is false.
type SavePressed struct{ createLogAction }

// SaveSucceeded resets the form after a durable local write.
type SaveSucceeded struct {
	createLogAction
	Log journal.Loggable
}

// SaveFailed surfaces a local write failure on the form.
type SaveFailed struct {
	createLogAction
	Err error
}

// SaveErrorDismissed clears the form's error popup.
type SaveErrorDismissed struct{ createLogAction }

// ResetCreateLog returns the form to its default value.
type ResetCreateLog struct{ createLogAction }

// ViewLogsDateSelected picks the day to browse; middleware fetches its logs.
type ViewLogsDateSelected struct {
	viewLogsAction
	Date time.Time
}

// ViewLogsFilterChanged narrows the browsed logs to one category, or clears
// the filter when Category is nil.
type ViewLogsFilterChanged struct {
	viewLogsAction
	Category *journal.Category
}

// ViewLogsFetchFailed surfaces a cache read failure on the browse screen.
type ViewLogsFetchFailed struct {
	viewLogsAction
	Err error
}

// ViewLogsErrorDismissed clears the browse screen's error popup.
type ViewLogsErrorDismissed struct{ viewLogsAction }

// LogDetailsOpened shows a single log.
type LogDetailsOpened struct {
	logDetailsAction
	Log journal.Loggable
}

// LogDetailsDeletePressed asks middleware to delete the shown log.
type LogDetailsDeletePressed struct{ logDetailsAction }

// LogDetailsDeleteSucceeded records a completed delete.
type LogDetailsDeleteSucceeded struct {
	logDetailsAction
	ID string
}

// LogDetailsDeleteFailed surfaces a delete failure.
type LogDetailsDeleteFailed struct {
	logDetailsAction
	Err error
}

// LogDetailsErrorDismissed clears the detail screen's error popup.
type LogDetailsErrorDismissed struct{ logDetailsAction }

// ReminderDetailsOpened edits an existing reminder.
type ReminderDetailsOpened struct {
	reminderDetailsAction
	Reminder journal.LogReminder
}

// ReminderDraftedFromLog starts a reminder draft templated on a log. The
// draft has no id until middleware saves it.
type ReminderDraftedFromLog struct {
	reminderDetailsAction
	Log journal.Loggable
}

// ReminderDateChanged edits the reminder fire date.
type ReminderDateChanged struct {
	reminderDetailsAction
	Date time.Time
}

// ReminderIntervalChanged edits the recurrence interval; zero means one-shot.
type ReminderIntervalChanged struct {
	reminderDetailsAction
	Interval time.Duration
}

// ReminderSavePressed asks middleware to persist and schedule the reminder.
type ReminderSavePressed struct{ reminderDetailsAction }

// ReminderSaveSucceeded commits the persisted reminder to the editor.
type ReminderSaveSucceeded struct {
	reminderDetailsAction
	Reminder journal.LogReminder
}

// ReminderSaveFailed surfaces a reminder save failure.
type ReminderSaveFailed struct {
	reminderDetailsAction
	Err error
}

// ReminderDeletePressed asks middleware to delete and unschedule the reminder.
type ReminderDeletePressed struct{ reminderDetailsAction }

// ReminderDeleteSucceeded records a completed reminder delete.
type ReminderDeleteSucceeded struct {
	reminderDetailsAction
	ID string
}

// ReminderDeleteFailed surfaces a reminder delete failure.
type ReminderDeleteFailed struct {
	reminderDetailsAction
	Err error
}

// ReminderCompletePressed logs the reminder's template now. One-shot
// reminders are consumed; recurring reminders advance by their interval.
type ReminderCompletePressed struct{ reminderDetailsAction }

// ReminderCompleted records the outcome of completing a reminder.
type ReminderCompleted struct {
	reminderDetailsAction
	Log  journal.Loggable
	Next *journal.LogReminder
}

// ReminderCompleteFailed surfaces a completion failure.
type ReminderCompleteFailed struct {
	reminderDetailsAction
	Err error
}

// ReminderErrorDismissed clears the reminder editor's error popup.
type ReminderErrorDismissed struct{ reminderDetailsAction }

// LinkAccountPressed runs the external sign-in flow and links its account to
// the active user.
type LinkAccountPressed struct{ settingsAction }

// AccountLinked commits the updated, linked user.
type AccountLinked struct {
	settingsAction
	User journal.User
}

// LinkAccountFailed surfaces a sign-in or link failure.
type LinkAccountFailed struct {
	settingsAction
	Err error
}

// RestorePressed runs sign-in and restores the matching remote account,
// discarding all local state. Local records are never merged with the backup.
type RestorePressed struct{ settingsAction }

// RestoreSucceeded commits the restored user after the local wipe.
type RestoreSucceeded struct {
	settingsAction
	User journal.User
}

// RestoreFailed surfaces a restore failure.
type RestoreFailed struct {
	settingsAction
	Err error
}

// SettingsErrorDismissed clears the settings screen's error popup.
type SettingsErrorDismissed struct{ settingsAction }
