package journal

import "fmt"

// IntegrityError reports a payload variant that contradicts its declared
// category tag. It signals a broken upstream invariant and is not meant to be
// recovered from.
type IntegrityError struct {
	Category Category
	Detail   string
}

// NewIntegrityError constructs an IntegrityError for the given category.
func NewIntegrityError(category Category, detail string) *IntegrityError {
	return &IntegrityError{Category: category, Detail: detail}
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("journal: integrity violation for category %q: %s", e.Category, e.Detail)
}

// MustMatchCategory aborts when the searchable item's parent category differs
// from the expected category. Reaching the mismatch branch means the
// search/category invariant was already broken upstream, so the process halts
// rather than guessing.
func MustMatchCategory(expected Category, item LogSearchable) {
	if item.ParentCategory != expected {
		panic(NewIntegrityError(expected, fmt.Sprintf("search result %q belongs to %q", item.ID, item.ParentCategory)))
	}
}
