package journal

import (
	"errors"
	"fmt"
	"strings"
)

// CreatedByMaster marks globally curated catalog entries available to every user.
const CreatedByMaster = "master"

// ErrInvalidSearchableName indicates an empty or oversized catalog entry name.
var ErrInvalidSearchableName = errors.New("journal: invalid searchable name")

// LogSearchable is a catalog entry (medication, nutrition item, symptom or
// activity) a user can attach to a Loggable. Entries are either curated
// (CreatedBy == CreatedByMaster) or user-added.
type LogSearchable struct {
	ID             string
	Name           string
	ParentCategory Category
	CreatedBy      string
}

// Validate checks identifier, name and category membership.
func (s LogSearchable) Validate() error {
	if _, err := NewLogID(s.ID); err != nil {
		return err
	}
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSearchableName)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidSearchableName, maxIdentifierLength)
	}
	if !s.ParentCategory.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, s.ParentCategory)
	}
	return nil
}

// VisibleTo reports whether the entry is searchable by the given user.
func (s LogSearchable) VisibleTo(userID string) bool {
	return s.CreatedBy == CreatedByMaster || s.CreatedBy == userID
}
