package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"go.uber.org/zap"
)

// DefaultSettleWindow is how long the raw query must rest before a remote
// search fires.
const DefaultSettleWindow = 500 * time.Millisecond

// SearchConfig describes the dependencies of the catalog search middleware.
type SearchConfig struct {
	Remote       remote.Store
	SettleWindow time.Duration
	Logger       *zap.Logger
}

// NewSearchMiddleware debounces raw query edits and forwards the settled,
// normalized query to the remote catalog. One cancellable handle exists per
// form session; opening a new session cancels the previous one.
//
// Results are applied in completion order, not initiation order: a slow early
// search finishing after a later one can overwrite newer results. The form
// state machine tolerates this; the store does not reorder completions.
func NewSearchMiddleware(cfg SearchConfig) (state.Middleware, error) {
	if cfg.Remote == nil {
		return nil, errMissingRemote
	}
	settle := cfg.SettleWindow
	if settle <= 0 {
		settle = DefaultSettleWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &searchMiddleware{
		remote: cfg.Remote,
		settle: settle,
		logger: logger,
	}
	return m.handle, nil
}

type searchMiddleware struct {
	remote remote.Store
	settle time.Duration
	logger *zap.Logger

	mu            sync.Mutex
	timer         *time.Timer
	lastForwarded string
}

func (m *searchMiddleware) handle(prev state.AppState, action state.Action, next state.AppState, dispatch func(state.Action)) {
	switch typed := action.(type) {
	case state.CreateLogOpened, state.ResetCreateLog, state.SaveSucceeded:
		m.cancelSession()
	case state.CategorySelected:
		// The scope changed; a pending search against the old category must
		// not fire.
		m.cancelSession()
	case state.SearchQueryChanged:
		m.scheduleSearch(typed.Query, next.CreateLog.SelectedCategory, ownerID(next), dispatch)
	case state.CreateSearchItemPressed:
		go m.createCatalogItem(typed.Name, next.CreateLog.SelectedCategory, ownerID(next), dispatch)
	}
}

func ownerID(tree state.AppState) string {
	if tree.Global.ActiveUser == nil {
		return ""
	}
	return tree.Global.ActiveUser.ID
}

func (m *searchMiddleware) cancelSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.lastForwarded = ""
}

func (m *searchMiddleware) scheduleSearch(raw string, category journal.Category, owner string, dispatch func(state.Action)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.settle, func() {
		m.forward(raw, category, owner, dispatch)
	})
}

func (m *searchMiddleware) forward(raw string, category journal.Category, owner string, dispatch func(state.Action)) {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	m.mu.Lock()
	if normalized == m.lastForwarded {
		m.mu.Unlock()
		return
	}
	m.lastForwarded = normalized
	m.mu.Unlock()

	if normalized == "" {
		dispatch(state.SearchCompleted{})
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	results, err := m.remote.SearchCatalog(ctx, category, normalized, owner)
	if err != nil {
		dispatch(state.SearchFailed{Err: err})
		return
	}
	dispatch(state.SearchCompleted{Results: results})
}

func (m *searchMiddleware) createCatalogItem(name string, category journal.Category, owner string, dispatch func(state.Action)) {
	ctx, cancel := opContext()
	defer cancel()

	item, err := m.remote.CreateCatalogItem(ctx, category, strings.TrimSpace(name), owner)
	if err != nil {
		dispatch(state.CreateSearchItemFailed{Err: err})
		return
	}
	dispatch(state.CreateSearchItemSucceeded{Item: item})

	// Refresh the visible results so the new entry shows up in its scope.
	m.mu.Lock()
	last := m.lastForwarded
	m.mu.Unlock()
	if last == "" {
		return
	}
	results, err := m.remote.SearchCatalog(ctx, category, last, owner)
	if err != nil {
		m.logger.Warn("post-create search refresh failed", zap.Error(err))
		return
	}
	dispatch(state.SearchCompleted{Results: results})
}
