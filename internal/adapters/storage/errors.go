package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrCorruptState   = errors.New("persisted state is corrupt")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrClosed         = errors.New("store is closed")
)
