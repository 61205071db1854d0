package middleware

import (
	"time"

	"github.com/quillhealth/quill/internal/analytics"
	"github.com/quillhealth/quill/internal/state"
)

// AnalyticsConfig describes the dependencies of the analytics middleware.
type AnalyticsConfig struct {
	Clock func() time.Time
}

// NewAnalyticsMiddleware rederives the rolling aggregates whenever the shared
// log collection changes. The derivation is pure, so it runs inline and
// dispatches synchronously.
func NewAnalyticsMiddleware(cfg AnalyticsConfig) (state.Middleware, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return func(prev state.AppState, action state.Action, next state.AppState, dispatch func(state.Action)) {
		switch action.(type) {
		case state.LogsRetrieved, state.LogInserted, state.LogDeleted, state.RestoreSucceeded, state.HomeAppeared:
			derived := analytics.Derive(next.GlobalLogs.Logs, clock().UTC())
			dispatch(state.AnalyticsUpdated{Analytics: derived})
		}
	}, nil
}
