package middleware

import (
	"time"

	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/notify"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"go.uber.org/zap"
)

// ReminderConfig describes the dependencies of the reminder middleware.
type ReminderConfig struct {
	Cache     *cache.Cache
	Remote    remote.Store
	Scheduler notify.Scheduler
	IDs       journal.IDProvider
	Clock     func() time.Time
	Logger    *zap.Logger
}

// NewReminderMiddleware persists reminders, keeps local notifications in step
// with them and handles reminder completion (log the template, then consume
// or advance the reminder).
func NewReminderMiddleware(cfg ReminderConfig) (state.Middleware, error) {
	if cfg.Cache == nil {
		return nil, errMissingCache
	}
	if cfg.Remote == nil {
		return nil, errMissingRemote
	}
	if cfg.Scheduler == nil {
		return nil, errMissingScheduler
	}
	if cfg.IDs == nil {
		return nil, errMissingIDs
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &reminderMiddleware{
		cache:     cfg.Cache,
		remote:    cfg.Remote,
		scheduler: cfg.Scheduler,
		ids:       cfg.IDs,
		clock:     clock,
		logger:    logger,
	}
	return m.handle, nil
}

type reminderMiddleware struct {
	cache     *cache.Cache
	remote    remote.Store
	scheduler notify.Scheduler
	ids       journal.IDProvider
	clock     func() time.Time
	logger    *zap.Logger
}

func (m *reminderMiddleware) handle(prev state.AppState, action state.Action, next state.AppState, dispatch func(state.Action)) {
	switch action.(type) {
	case state.AppLaunched:
		go m.fetchReminders(dispatch)
	case state.ReminderSavePressed:
		if !next.ReminderDetails.Saving || prev.ReminderDetails.Draft == nil {
			return
		}
		m.saveReminder(*prev.ReminderDetails.Draft, dispatch)
	case state.ReminderDeletePressed:
		if !next.ReminderDetails.Saving || prev.ReminderDetails.Draft == nil {
			return
		}
		go m.deleteReminder(prev.ReminderDetails.Draft.ID, dispatch)
	case state.ReminderCompletePressed:
		if !next.ReminderDetails.Saving || prev.ReminderDetails.Draft == nil {
			return
		}
		m.completeReminder(*prev.ReminderDetails.Draft, next.Global.ActiveUser, dispatch)
	}
}

func (m *reminderMiddleware) fetchReminders(dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	reminders, err := m.cache.QueryReminders(ctx)
	if err != nil {
		m.logger.Error("reminder fetch failed", zap.Error(err))
		return
	}
	dispatch(state.RemindersRetrieved{Reminders: reminders})
}

func (m *reminderMiddleware) saveReminder(draft journal.LogReminder, dispatch func(state.Action)) {
	if draft.ID == "" {
		id, err := m.ids.NewID()
		if err != nil {
			dispatch(state.ReminderSaveFailed{Err: err})
			return
		}
		draft.ID = id
	}

	go func() {
		ctx, cancel := opContext()
		defer cancel()

		if err := m.cache.SaveReminder(ctx, draft); err != nil {
			dispatch(state.ReminderSaveFailed{Err: err})
			return
		}
		if err := m.scheduler.Schedule(ctx, draft); err != nil {
			m.logger.Warn("reminder scheduling failed", zap.String("reminder_id", draft.ID), zap.Error(err))
		}
		dispatch(state.ReminderSaveSucceeded{Reminder: draft})
		dispatch(state.ReminderInserted{Reminder: draft})
	}()
}

func (m *reminderMiddleware) deleteReminder(id string, dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	if err := m.cache.DeleteReminder(ctx, id); err != nil {
		dispatch(state.ReminderDeleteFailed{Err: err})
		return
	}
	if err := m.scheduler.Cancel(ctx, id); err != nil {
		m.logger.Warn("reminder cancel failed", zap.String("reminder_id", id), zap.Error(err))
	}
	dispatch(state.ReminderDeleteSucceeded{ID: id})
	dispatch(state.ReminderDeleted{ID: id})
}

// completeReminder writes the template as a fresh log, then consumes a
// one-shot reminder or advances a recurring one by its interval.
func (m *reminderMiddleware) completeReminder(reminder journal.LogReminder, owner *journal.User, dispatch func(state.Action)) {
	logID, err := m.ids.NewID()
	if err != nil {
		dispatch(state.ReminderCompleteFailed{Err: err})
		return
	}
	entry := reminder.Template
	entry.ID = logID
	entry.DateCreated = m.clock().UTC()

	go func() {
		ctx, cancel := opContext()
		defer cancel()

		if err := m.cache.SaveLog(ctx, entry); err != nil {
			dispatch(state.ReminderCompleteFailed{Err: err})
			return
		}

		if reminder.Recurring() {
			advanced := reminder.NextOccurrence()
			if err := m.cache.SaveReminder(ctx, advanced); err != nil {
				dispatch(state.ReminderCompleteFailed{Err: err})
				return
			}
			if err := m.scheduler.Schedule(ctx, advanced); err != nil {
				m.logger.Warn("reminder rescheduling failed", zap.String("reminder_id", advanced.ID), zap.Error(err))
			}
			dispatch(state.ReminderCompleted{Log: entry, Next: &advanced})
			dispatch(state.LogInserted{Log: entry})
			dispatch(state.ReminderInserted{Reminder: advanced})
		} else {
			if err := m.cache.DeleteReminder(ctx, reminder.ID); err != nil {
				dispatch(state.ReminderCompleteFailed{Err: err})
				return
			}
			if err := m.scheduler.Cancel(ctx, reminder.ID); err != nil {
				m.logger.Warn("reminder cancel failed", zap.String("reminder_id", reminder.ID), zap.Error(err))
			}
			dispatch(state.ReminderCompleted{Log: entry})
			dispatch(state.LogInserted{Log: entry})
			dispatch(state.ReminderDeleted{ID: reminder.ID})
		}

		if owner != nil {
			if err := m.remote.SaveLog(ctx, entry, owner.ID); err != nil {
				m.logger.Warn("remote log mirror failed", zap.String("log_id", entry.ID), zap.Error(err))
			}
		}
	}()
}
