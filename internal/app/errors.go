package service

import (
	"errors"

	"github.com/okian/pairrank/internal/domain/progress"
)

// Sentinel kinds for service errors.
var (
	// ErrInsufficientItems is returned when fewer than two items can be compared.
	ErrInsufficientItems = progress.ErrInsufficientItems

	// ErrRequestInFlight is returned when a request id is reused before the
	// first submission with it has finished.
	ErrRequestInFlight = errors.New("request with this id is still being processed")

	// ErrInvalidJudgment is returned when a judgment misses a winner or loser.
	ErrInvalidJudgment = errors.New("judgment needs a winner and a loser")
)
