package middleware

import (
	"errors"
	"time"

	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"go.uber.org/zap"
)

// AccountConfig describes the dependencies of the account middleware.
type AccountConfig struct {
	Cache  *cache.Cache
	Remote remote.Store
	Auth   remote.AuthProvider
	IDs    journal.IDProvider
	Clock  func() time.Time
	Logger *zap.Logger
}

// NewAccountMiddleware resolves the active user on launch, links external
// accounts and runs the destructive restore flow.
func NewAccountMiddleware(cfg AccountConfig) (state.Middleware, error) {
	if cfg.Cache == nil {
		return nil, errMissingCache
	}
	if cfg.Remote == nil {
		return nil, errMissingRemote
	}
	if cfg.Auth == nil {
		return nil, errMissingAuth
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

	m := &accountMiddleware{
		cache:  cfg.Cache,
		remote: cfg.Remote,
		auth:   cfg.Auth,
		ids:    cfg.IDs,
		clock:  clock,
		logger: logger,
	}
	return m.handle, nil
}

type accountMiddleware struct {
	cache  *cache.Cache
	remote remote.Store
	auth   remote.AuthProvider
	ids    journal.IDProvider
	clock  func() time.Time
	logger *zap.Logger
}

func (m *accountMiddleware) handle(prev state.AppState, action state.Action, next state.AppState, dispatch func(state.Action)) {
	switch action.(type) {
	case state.AppLaunched:
		go m.resolveActiveUser(dispatch)
	case state.LinkAccountPressed:
		go m.linkAccount(next.Global.ActiveUser, dispatch)
	case state.RestorePressed:
		go m.restoreAccount(dispatch)
	}
}

// resolveActiveUser loads the locally stored user, creating one on first
// launch. The remote lookup runs every launch but a remote failure never
// blocks the session: the local record wins.
func (m *accountMiddleware) resolveActiveUser(dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	user, err := m.cache.ActiveUser(ctx)
	switch {
	case errors.Is(err, cache.ErrNoActiveUser):
		id, idErr := m.ids.NewID()
		if idErr != nil {
			dispatch(state.ActiveUserLoadFailed{Err: idErr})
			return
		}
		user = journal.User{ID: id, DateCreated: m.clock().UTC()}
		if saveErr := m.cache.SaveActiveUser(ctx, user); saveErr != nil {
			dispatch(state.ActiveUserLoadFailed{Err: saveErr})
			return
		}
		if remoteErr := m.remote.SaveUser(ctx, user); remoteErr != nil {
			m.logger.Warn("remote user creation failed", zap.String("user_id", user.ID), zap.Error(remoteErr))
		}
	case err != nil:
		dispatch(state.ActiveUserLoadFailed{Err: err})
		return
	default:
		remoteUser, remoteErr := m.remote.GetUser(ctx, user.ID)
		switch {
		case remoteErr == nil:
			user = remoteUser
			if saveErr := m.cache.SaveActiveUser(ctx, user); saveErr != nil {
				m.logger.Warn("active user refresh failed", zap.String("user_id", user.ID), zap.Error(saveErr))
			}
		case errors.Is(remoteErr, remote.ErrNotFound):
			if saveErr := m.remote.SaveUser(ctx, user); saveErr != nil {
				m.logger.Warn("remote user backfill failed", zap.String("user_id", user.ID), zap.Error(saveErr))
			}
		default:
			m.logger.Warn("remote user lookup failed", zap.String("user_id", user.ID), zap.Error(remoteErr))
		}
	}

	dispatch(state.ActiveUserLoaded{User: user})
}

func (m *accountMiddleware) linkAccount(active *journal.User, dispatch func(state.Action)) {
	if active == nil {
		dispatch(state.LinkAccountFailed{Err: errors.New("no active user to link")})
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	account, err := m.auth.SignIn(ctx)
	if err != nil {
		dispatch(state.LinkAccountFailed{Err: err})
		return
	}

	linked := *active
	linked.LinkedAccount = &account
	if err := m.cache.SaveActiveUser(ctx, linked); err != nil {
		dispatch(state.LinkAccountFailed{Err: err})
		return
	}
	if err := m.remote.SaveUser(ctx, linked); err != nil {
		m.logger.Warn("remote link mirror failed", zap.String("user_id", linked.ID), zap.Error(err))
	}

	dispatch(state.AccountLinked{User: linked})
}

// restoreAccount discards the whole local history and adopts the remote user
// matching the signed-in account. There is no merge: the old local state is
// gone once this succeeds.
func (m *accountMiddleware) restoreAccount(dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	account, err := m.auth.SignIn(ctx)
	if err != nil {
		dispatch(state.RestoreFailed{Err: err})
		return
	}

	restored, err := m.remote.FindUserByLinkedAccount(ctx, account.AccountID)
	if err != nil {
		dispatch(state.RestoreFailed{Err: err})
		return
	}

	if err := m.cache.ResetAll(ctx); err != nil {
		dispatch(state.RestoreFailed{Err: err})
		return
	}
	if err := m.cache.SaveActiveUser(ctx, restored); err != nil {
		dispatch(state.RestoreFailed{Err: err})
		return
	}

	m.logger.Info("account restored", zap.String("user_id", restored.ID))
	dispatch(state.RestoreSucceeded{User: restored})
}
