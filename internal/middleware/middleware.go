// Package middleware holds the engine's side-effect handlers. Middleware are
// the only place I/O happens: each one inspects the committed action and
// state, runs cache/remote work on its own goroutine and reports back by
// dispatching follow-up actions. Cache and remote errors are converted into
// failure actions here and never cross the store boundary.
package middleware

import (
	"context"
	"errors"
	"time"
)

const requestTimeout = 15 * time.Second

var (
	errMissingCache     = errors.New("cache dependency is required")
	errMissingRemote    = errors.New("remote store dependency is required")
	errMissingAuth      = errors.New("auth provider dependency is required")
	errMissingIDs       = errors.New("id provider dependency is required")
	errMissingScheduler = errors.New("notification scheduler dependency is required")
)

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
