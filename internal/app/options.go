package service

import (
	"time"

	"github.com/okian/pairrank/internal/adapters/storage"
	"github.com/okian/pairrank/internal/domain/selection"
	"github.com/okian/pairrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStorage sets where state is persisted. Without it state lives in memory only.
func WithStorage(st storage.Store) Option {
	return func(s *Service) {
		s.storage = st
	}
}

// WithRecordingsDir sets the directory scanned for items.
func WithRecordingsDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.recordingsDir = dir
		}
	}
}

// WithExtensions sets the accepted recording extensions.
func WithExtensions(exts []string) Option {
	return func(s *Service) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// WithWatch enables refreshing the catalog on directory changes.
func WithWatch(enabled bool) Option {
	return func(s *Service) {
		s.watch = enabled
	}
}

// WithQueueSize sets the maximum size of the persistence queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency-key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSelectorOptions passes options to the pair selector, e.g. a seed.
func WithSelectorOptions(opts ...selection.Option) Option {
	return func(s *Service) {
		s.selectorOpts = append(s.selectorOpts, opts...)
	}
}

// WithClock sets the time source used to stamp comparisons.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStopTimeout bounds how long Stop waits for the persister to drain.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}
