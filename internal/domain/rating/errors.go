package rating

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the rating store. These allow errors.Is from callers.
var (
	// ErrInvalidComparison marks a caller contract violation: identical
	// items or an item the store does not know.
	ErrInvalidComparison = errors.New("invalid comparison")

	// ErrUnknownItem is the unknown-item flavour of ErrInvalidComparison.
	ErrUnknownItem = fmt.Errorf("%w: unknown item", ErrInvalidComparison)

	// ErrSameItem is the identical-items flavour of ErrInvalidComparison.
	ErrSameItem = fmt.Errorf("%w: winner and loser are the same item", ErrInvalidComparison)
)
