package state

import "github.com/quillhealth/quill/internal/journal"

// Reduce is the single synchronous transition function over the state tree.
// It is pure and total: for any (state, action) pair it returns a replacement
// tree without blocking, erroring or touching I/O. Dispatch is two-level: the
// feature marker selects the sub-reducer, the concrete action type selects
// the transition.
func Reduce(state AppState, action Action) AppState {
	switch typed := action.(type) {
	case GlobalAction:
		return reduceGlobal(state, typed)
	case HomeAction:
		state.Home = reduceHome(state.Home, typed)
	case CreateLogAction:
		state.CreateLog = reduceCreateLog(state.CreateLog, typed)
	case ViewLogsAction:
		state.ViewLogs = reduceViewLogs(state.ViewLogs, typed)
	case LogDetailsAction:
		state.LogDetails = reduceLogDetails(state.LogDetails, typed)
	case ReminderDetailsAction:
		state.ReminderDetails = reduceReminderDetails(state.ReminderDetails, typed)
	case SettingsAction:
		return reduceSettings(state, typed)
	}
	return state
}

func reduceGlobal(state AppState, action GlobalAction) AppState {
	switch typed := action.(type) {
	case ActiveUserLoaded:
		user := typed.User
		state.Global.ActiveUser = &user
		state.Global.UserLoadFailed = false
	case ActiveUserLoadFailed:
		state.Global.UserLoadFailed = true
	case LogsRetrieved:
		state.GlobalLogs = state.GlobalLogs.Merging(typed.Logs)
	case LogInserted:
		state.GlobalLogs = state.GlobalLogs.Inserting(typed.Log)
	case LogDeleted:
		state.GlobalLogs = state.GlobalLogs.Deleting(typed.ID)
	case RemindersRetrieved:
		state.GlobalLogReminders = state.GlobalLogReminders.Replacing(typed.Reminders)
	case ReminderInserted:
		state.GlobalLogReminders = state.GlobalLogReminders.Inserting(typed.Reminder)
	case ReminderDeleted:
		state.GlobalLogReminders = state.GlobalLogReminders.Deleting(typed.ID)
	}
	return state
}

func reduceHome(home HomeState, action HomeAction) HomeState {
	switch typed := action.(type) {
	case AnalyticsUpdated:
		home.Analytics = typed.Analytics
		home.AnalyticsReady = true
	}
	return home
}

func reduceCreateLog(form CreateLogState, action CreateLogAction) CreateLogState {
	switch typed := action.(type) {
	case CreateLogOpened, ResetCreateLog:
		return NewCreateLogState()
	case CategorySelected:
		if !typed.Category.Valid() || typed.Category == form.SelectedCategory {
			return form
		}
		// Switching category invalidates the search scope and every
		// category-specific payload field.
		fresh := NewCreateLogState()
		fresh.SelectedCategory = typed.Category
		fresh.Title = form.Title
		fresh.Notes = form.Notes
		return fresh
	case TitleChanged:
		form.Title = typed.Title
	case NotesChanged:
		form.Notes = typed.Notes
	case SearchQueryChanged:
		form.RawQuery = typed.Query
		form.SearchStatus = SearchSearching
	case SearchCompleted:
		form.SearchResults = typed.Results
		form.SearchStatus = SearchIdle
	case SearchFailed:
		form.SearchStatus = SearchIdle
	case SearchResultSelected:
		if typed.Index < 0 || typed.Index >= len(form.SearchResults) {
			return form
		}
		selected := form.SearchResults[typed.Index]
		journal.MustMatchCategory(form.SelectedCategory, selected)
		form.SelectedResult = &selected
	case CreateSearchItemSucceeded:
		journal.MustMatchCategory(form.SelectedCategory, typed.Item)
		item := typed.Item
		form.SelectedResult = &item
	case CreateSearchItemFailed:
		form.SaveErrorShown = true
	case MoodRankSelected:
		if !typed.Rank.Valid() {
			return form
		}
		rank := typed.Rank
		form.MoodRank = &rank
	case SeveritySelected:
		severity := typed.Severity
		form.Severity = &severity
	case DosageChanged:
		form.Dosage = typed.Dosage
	case AmountChanged:
		form.Amount = typed.Amount
	case DurationChanged:
		form.Duration = typed.Duration
	case SavePressed:
		if form.CanSave() {
			form.Saving = true
		}
	case SaveSucceeded:
		return NewCreateLogState()
	case SaveFailed:
		form.Saving = false
		form.SaveErrorShown = true
	case SaveErrorDismissed:
		form.SaveErrorShown = false
	}
	return form
}

func reduceViewLogs(view ViewLogsState, action ViewLogsAction) ViewLogsState {
	switch typed := action.(type) {
	case ViewLogsDateSelected:
		view.SelectedDate = typed.Date
	case ViewLogsFilterChanged:
		view.FilterCategory = typed.Category
	case ViewLogsFetchFailed:
		view.ErrorShown = true
	case ViewLogsErrorDismissed:
		view.ErrorShown = false
	}
	return view
}

func reduceLogDetails(details LogDetailsState, action LogDetailsAction) LogDetailsState {
	switch typed := action.(type) {
	case LogDetailsOpened:
		log := typed.Log
		return LogDetailsState{Log: &log}
	case LogDetailsDeletePressed:
		if details.Log != nil {
			details.Deleting = true
		}
	case LogDetailsDeleteSucceeded:
		return LogDetailsState{}
	case LogDetailsDeleteFailed:
		details.Deleting = false
		details.ErrorShown = true
	case LogDetailsErrorDismissed:
		details.ErrorShown = false
	}
	return details
}

func reduceReminderDetails(editor ReminderDetailsState, action ReminderDetailsAction) ReminderDetailsState {
	switch typed := action.(type) {
	case ReminderDetailsOpened:
		reminder := typed.Reminder
		return ReminderDetailsState{Draft: &reminder}
	case ReminderDraftedFromLog:
		draft := journal.LogReminder{Template: typed.Log}
		return ReminderDetailsState{Draft: &draft}
	case ReminderDateChanged:
		if editor.Draft == nil {
			return editor
		}
		draft := *editor.Draft
		draft.ReminderDate = typed.Date
		editor.Draft = &draft
	case ReminderIntervalChanged:
		if editor.Draft == nil || typed.Interval < 0 {
			return editor
		}
		draft := *editor.Draft
		draft.Interval = typed.Interval
		editor.Draft = &draft
	case ReminderSavePressed:
		if editor.Draft != nil && !editor.Draft.ReminderDate.IsZero() {
			editor.Saving = true
		}
	case ReminderSaveSucceeded:
		reminder := typed.Reminder
		return ReminderDetailsState{Draft: &reminder}
	case ReminderSaveFailed:
		editor.Saving = false
		editor.ErrorShown = true
	case ReminderDeletePressed:
		if editor.Draft != nil && editor.Draft.ID != "" {
			editor.Saving = true
		}
	case ReminderDeleteSucceeded:
		return ReminderDetailsState{}
	case ReminderDeleteFailed:
		editor.Saving = false
		editor.ErrorShown = true
	case ReminderCompletePressed:
		if editor.Draft != nil && editor.Draft.ID != "" {
			editor.Saving = true
		}
	case ReminderCompleted:
		if typed.Next == nil {
			return ReminderDetailsState{}
		}
		next := *typed.Next
		return ReminderDetailsState{Draft: &next}
	case ReminderCompleteFailed:
		editor.Saving = false
		editor.ErrorShown = true
	case ReminderErrorDismissed:
		editor.ErrorShown = false
	}
	return editor
}

func reduceSettings(state AppState, action SettingsAction) AppState {
	switch typed := action.(type) {
	case LinkAccountPressed:
		state.Settings.Linking = true
	case AccountLinked:
		user := typed.User
		state.Global.ActiveUser = &user
		state.Settings.Linking = false
	case LinkAccountFailed:
		state.Settings.Linking = false
		state.Settings.ErrorShown = true
	case RestorePressed:
		state.Settings.Restoring = true
	case RestoreSucceeded:
		// The local wipe already happened in middleware; the tree follows:
		// collections empty, restored user active.
		user := typed.User
		state.Global.ActiveUser = &user
		state.Settings.Restoring = false
		state.GlobalLogs = LogCollection{}
		state.GlobalLogReminders = ReminderCollection{}
	case RestoreFailed:
		state.Settings.Restoring = false
		state.Settings.ErrorShown = true
	case SettingsErrorDismissed:
		state.Settings.ErrorShown = false
	}
	return state
}
