// Package worker persists queued state snapshots in the background.
package worker

import (
	"github.com/okian/pairrank/pkg/logger"
)

// Option applies a configuration option to the Persister.
type Option func(*Persister)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Persister) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *Persister) {
		if logger != nil {
			w.logger = logger
		}
	}
}
