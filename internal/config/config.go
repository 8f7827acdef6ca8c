// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
)

// Storage backend names.
const (
	BackendJSON   = "json"
	BackendBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RecordingsDir is scanned for items to rank.
	RecordingsDir string `koanf:"recordings_dir"`

	// AudioExtensions lists accepted file extensions, compared case-insensitively.
	AudioExtensions []string `koanf:"audio_extensions"`

	// WatchRecordings refreshes the catalog when RecordingsDir changes.
	WatchRecordings bool `koanf:"watch_recordings"`

	// StorageBackend selects persistence: json or badger.
	StorageBackend string `koanf:"storage_backend"`

	// RankingsFile and HistoryFile are used by the json backend.
	RankingsFile string `koanf:"rankings_file"`
	HistoryFile  string `koanf:"history_file"`

	// BadgerDir is used by the badger backend.
	BadgerDir string `koanf:"badger_dir"`

	// PersistQueueSize bounds the snapshot queue.
	PersistQueueSize int `koanf:"persist_queue_size"`

	// DedupeSize sets the size of the idempotency-key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRankingsLimit caps GET /rankings?limit.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`

	// RandomSeed seeds pair selection; 0 means time-seeded.
	RandomSeed int64 `koanf:"random_seed"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		RecordingsDir:    "recordings",
		AudioExtensions:  []string{".mp3", ".wav", ".ogg", ".flac"},
		WatchRecordings:  true,
		StorageBackend:   BackendJSON,
		RankingsFile:     "song_rankings.json",
		HistoryFile:      "comparison_history.json",
		BadgerDir:        "data/badger",
		PersistQueueSize: 64,
		DedupeSize:       10_000,
		MaxRankingsLimit: 500,
	}
}
