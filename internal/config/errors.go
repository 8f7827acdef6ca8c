package config

import (
	"errors"
)

// Sentinel errors. Validation failures wrap ErrInvalidConfig; an unknown
// storage backend additionally wraps ErrUnknownBackend.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrLoadConfig     = errors.New("load config failed")
	ErrUnknownBackend = errors.New("unknown storage backend")
)
