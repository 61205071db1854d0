package middleware

import (
	"time"

	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"go.uber.org/zap"
)

// LogSyncConfig describes the dependencies of the log reconciler.
type LogSyncConfig struct {
	Cache  *cache.Cache
	Remote remote.Store
	IDs    journal.IDProvider
	Clock  func() time.Time
	Logger *zap.Logger
}

// NewLogSyncMiddleware implements the local-first read/write policy for logs:
// the cache write is awaited and decides success; the remote mirror is
// best-effort and its failures are logged, never surfaced.
func NewLogSyncMiddleware(cfg LogSyncConfig) (state.Middleware, error) {
	if cfg.Cache == nil {
		return nil, errMissingCache
	}
	if cfg.Remote == nil {
		return nil, errMissingRemote
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

	m := &logSyncMiddleware{
		cache:  cfg.Cache,
		remote: cfg.Remote,
		ids:    cfg.IDs,
		clock:  clock,
		logger: logger,
	}
	return m.handle, nil
}

type logSyncMiddleware struct {
	cache  *cache.Cache
	remote remote.Store
	ids    journal.IDProvider
	clock  func() time.Time
	logger *zap.Logger
}

func (m *logSyncMiddleware) handle(prev state.AppState, action state.Action, next state.AppState, dispatch func(state.Action)) {
	switch typed := action.(type) {
	case state.SavePressed:
		// The reducer only flips Saving when the form predicate holds, so an
		// invalid save never reaches the data layer.
		if !next.CreateLog.Saving {
			return
		}
		m.saveLog(prev.CreateLog, next.Global.ActiveUser, dispatch)
	case state.HomeAppeared:
		go m.fetchRecent(dispatch)
	case state.ViewLogsDateSelected:
		go m.fetchDay(typed.Date, next.ViewLogs.FilterCategory, dispatch)
	case state.LogDetailsDeletePressed:
		if !next.LogDetails.Deleting || prev.LogDetails.Log == nil {
			return
		}
		go m.deleteLog(prev.LogDetails.Log.ID, dispatch)
	}
}

func (m *logSyncMiddleware) saveLog(form state.CreateLogState, owner *journal.User, dispatch func(state.Action)) {
	id, err := m.ids.NewID()
	if err != nil {
		dispatch(state.SaveFailed{Err: err})
		return
	}
	log, err := form.BuildLoggable(id, m.clock().UTC())
	if err != nil {
		dispatch(state.SaveFailed{Err: err})
		return
	}

	go func() {
		ctx, cancel := opContext()
		defer cancel()

		if err := m.cache.SaveLog(ctx, log); err != nil {
			dispatch(state.SaveFailed{Err: err})
			return
		}
		// Durable locally; the save succeeds no matter what the mirror does.
		dispatch(state.SaveSucceeded{Log: log})
		dispatch(state.LogInserted{Log: log})

		if owner == nil {
			m.logger.Warn("no active user, skipping remote mirror", zap.String("log_id", log.ID))
			return
		}
		if err := m.remote.SaveLog(ctx, log, owner.ID); err != nil {
			m.logger.Warn("remote log mirror failed", zap.String("log_id", log.ID), zap.Error(err))
		}
	}()
}

func (m *logSyncMiddleware) fetchRecent(dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	logs, err := m.cache.QueryLogs(ctx, cache.QueryFilter{})
	if err != nil {
		m.logger.Error("recent log fetch failed", zap.Error(err))
		return
	}
	dispatch(state.LogsRetrieved{Logs: logs})
}

func (m *logSyncMiddleware) fetchDay(date time.Time, category *journal.Category, dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	day := date.UTC()
	since := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	until := since.Add(24*time.Hour - time.Second)
	logs, err := m.cache.QueryLogs(ctx, cache.QueryFilter{
		Category: category,
		Since:    &since,
		Until:    &until,
	})
	if err != nil {
		dispatch(state.ViewLogsFetchFailed{Err: err})
		return
	}
	dispatch(state.LogsRetrieved{Logs: logs})
}

func (m *logSyncMiddleware) deleteLog(id string, dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	if err := m.cache.DeleteLog(ctx, id); err != nil {
		dispatch(state.LogDetailsDeleteFailed{Err: err})
		return
	}
	dispatch(state.LogDetailsDeleteSucceeded{ID: id})
	dispatch(state.LogDeleted{ID: id})
}
