// Package app composes the engine: cache, remote store, scheduler and the
// middleware pipeline around one Store. It is the explicit context object
// built once at startup; nothing in the engine reaches for ambient globals.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/middleware"
	"github.com/quillhealth/quill/internal/notify"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"go.uber.org/zap"
)

// Dependencies wires the engine's collaborators.
type Dependencies struct {
	Cache              *cache.Cache
	Remote             remote.Store
	Auth               remote.AuthProvider
	Scheduler          notify.Scheduler
	IDs                journal.IDProvider
	Clock              func() time.Time
	SearchSettleWindow time.Duration
	Logger             *zap.Logger
}

// App owns the composed store.
type App struct {
	Store *state.Store
}

// New builds the middleware pipeline in its fixed registration order and the
// store around it.
func New(deps Dependencies) (*App, error) {
	if deps.Cache == nil {
		return nil, errors.New("app: cache dependency required")
	}
	if deps.Remote == nil {
		return nil, errors.New("app: remote store dependency required")
	}
	auth := deps.Auth
	if auth == nil {
		auth = remote.StaticAuthProvider{}
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = notify.LogScheduler{Logger: deps.Logger}
	}
	ids := deps.IDs
	if ids == nil {
		ids = journal.NewUUIDProvider()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	account, err := middleware.NewAccountMiddleware(middleware.AccountConfig{
		Cache:  deps.Cache,
		Remote: deps.Remote,
		Auth:   auth,
		IDs:    ids,
		Clock:  clock,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	logSync, err := middleware.NewLogSyncMiddleware(middleware.LogSyncConfig{
		Cache:  deps.Cache,
		Remote: deps.Remote,
		IDs:    ids,
		Clock:  clock,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	reminders, err := middleware.NewReminderMiddleware(middleware.ReminderConfig{
		Cache:     deps.Cache,
		Remote:    deps.Remote,
		Scheduler: scheduler,
		IDs:       ids,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	search, err := middleware.NewSearchMiddleware(middleware.SearchConfig{
		Remote:       deps.Remote,
		SettleWindow: deps.SearchSettleWindow,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	analytics, err := middleware.NewAnalyticsMiddleware(middleware.AnalyticsConfig{Clock: clock})
	if err != nil {
		return nil, err
	}

	store := state.NewStore(state.StoreConfig{
		Initial:    state.NewAppState(),
		Middleware: []state.Middleware{account, logSync, reminders, search, analytics},
		Logger:     logger,
	})

	return &App{Store: store}, nil
}

// WaitFor blocks until the state tree satisfies the predicate or the context
// ends, returning the satisfying tree.
func (a *App) WaitFor(ctx context.Context, predicate func(state.AppState) bool) (state.AppState, error) {
	stream, cancel := a.Store.Subscribe(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return state.AppState{}, ctx.Err()
		case tree := <-stream:
			if predicate(tree) {
				return tree, nil
			}
		}
	}
}
