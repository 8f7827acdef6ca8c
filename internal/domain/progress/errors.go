package progress

import "errors"

// ErrInsufficientItems is returned when fewer than two items are ranked.
var ErrInsufficientItems = errors.New("at least two items are required")
