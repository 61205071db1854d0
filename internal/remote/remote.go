// Package remote defines the durable backend boundary: user records, mirrored
// logs and the searchable catalog. The engine only ever talks to the Store
// interface; failures here never block a local write that already succeeded.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillhealth/quill/internal/journal"
)

// ErrNotFound indicates an empty result where a record was expected.
var ErrNotFound = errors.New("remote: not found")

// Error is a remote failure carrying a dotted operation code and its cause.
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *Error) Code() string {
	return e.code
}

func newRemoteError(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Store is the capability set the engine consumes from the backend.
type Store interface {
	GetUser(ctx context.Context, id string) (journal.User, error)
	SaveUser(ctx context.Context, user journal.User) error
	FindUserByLinkedAccount(ctx context.Context, accountID string) (journal.User, error)
	DeleteUser(ctx context.Context, id string) error
	SaveLog(ctx context.Context, log journal.Loggable, ownerID string) error
	SearchCatalog(ctx context.Context, category journal.Category, query, ownerID string) ([]journal.LogSearchable, error)
	CreateCatalogItem(ctx context.Context, category journal.Category, name, ownerID string) (journal.LogSearchable, error)
}

// AuthProvider is the opaque sign-in boundary. The engine consumes only the
// resulting account tuple, never the provider SDK.
type AuthProvider interface {
	SignIn(ctx context.Context) (journal.ExternalAccountRef, error)
	SignOut(ctx context.Context) error
}

// StaticAuthProvider returns a fixed account tuple; it backs the CLI and
// tests, where the interactive provider flow is out of scope.
type StaticAuthProvider struct {
	Account journal.ExternalAccountRef
}

// SignIn returns the configured tuple.
func (p StaticAuthProvider) SignIn(context.Context) (journal.ExternalAccountRef, error) {
	if err := p.Account.Validate(); err != nil {
		return journal.ExternalAccountRef{}, err
	}
	return p.Account, nil
}

// SignOut is a no-op for the static provider.
func (p StaticAuthProvider) SignOut(context.Context) error {
	return nil
}
