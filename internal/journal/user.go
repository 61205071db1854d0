package journal

import (
	"fmt"
	"strings"
	"time"
)

// ExternalAccountRef is the provider-agnostic tuple produced by a sign-in.
type ExternalAccountRef struct {
	AccountID   string
	DisplayName string
	Email       string
}

// Validate requires a non-empty account identifier.
func (a ExternalAccountRef) Validate() error {
	if strings.TrimSpace(a.AccountID) == "" {
		return fmt.Errorf("journal: external account id is empty")
	}
	return nil
}

// User is the single active account for an installation. LinkedAccount is set
// once the user connects an external sign-in, enabling backup restore.
type User struct {
	ID            string
	DateCreated   time.Time
	LinkedAccount *ExternalAccountRef
}

// Linked reports whether an external account is attached.
func (u User) Linked() bool {
	return u.LinkedAccount != nil
}

// Validate checks the user identifier and any linked account reference.
func (u User) Validate() error {
	if _, err := NewLogID(u.ID); err != nil {
		return fmt.Errorf("journal: invalid user id: %w", err)
	}
	if u.LinkedAccount != nil {
		return u.LinkedAccount.Validate()
	}
	return nil
}
