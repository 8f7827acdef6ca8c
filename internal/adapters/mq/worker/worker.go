// Package worker persists queued state snapshots in the background.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pairrank/internal/adapters/mq/queue"
	"github.com/okian/pairrank/internal/adapters/storage"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
)

// Saver writes a state snapshot.
type Saver interface {
	Save(ctx context.Context, st storage.State) error
}

// Queue defines how the worker receives snapshots.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Snapshot
}

// Worker drains snapshots into storage.
type Worker interface {
	// Run starts the worker loop until the queue is closed or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown closes the queue and waits for remaining snapshots to be written.
	Shutdown(ctx context.Context) error
}

// Persister is the single writer to storage. Only the newest snapshot
// available at each step is written; older ones are skipped.
type Persister struct {
	queue Queue
	saver Saver
	name  string

	mu       sync.Mutex
	lastSeq  uint64
	written  int
	skipped  int
	failures int

	done   chan struct{}
	logger logger.Logger
}

// Stats reports what the persister has done so far.
type Stats struct {
	LastSeq  uint64 `json:"last_seq"`
	Written  int    `json:"written"`
	Skipped  int    `json:"skipped"`
	Failures int    `json:"failures"`
}

// NewPersister creates a persister with configuration options.
func NewPersister(q Queue, saver Saver, opts ...Option) *Persister {
	w := &Persister{
		queue:  q,
		saver:  saver,
		name:   "persister",
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "persister" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when the queue channel is closed
// and drained, or when ctx is canceled.
func (w *Persister) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			latest, open := w.coalesce(ch, snap)
			w.persist(ctx, latest)
			if !open {
				return
			}
		}
	}
}

// coalesce takes every snapshot already waiting and keeps the newest. It
// reports false once the channel is closed.
func (w *Persister) coalesce(ch <-chan queue.Snapshot, latest queue.Snapshot) (queue.Snapshot, bool) { //nolint:gocritic // hugeParam: Snapshot is passed by value for channel semantics
	for {
		select {
		case next, ok := <-ch:
			if !ok {
				return latest, false
			}
			w.mu.Lock()
			w.skipped++
			w.mu.Unlock()
			if next.Seq >= latest.Seq {
				latest = next
			}
		default:
			return latest, true
		}
	}
}

func (w *Persister) persist(ctx context.Context, snap queue.Snapshot) { //nolint:gocritic // hugeParam: Snapshot is passed by value for channel semantics
	w.mu.Lock()
	stale := snap.Seq < w.lastSeq
	w.mu.Unlock()
	if stale {
		return
	}

	start := time.Now()
	err := w.saver.Save(ctx, snap.State)
	metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.failures++
		metrics.RecordPersistError()
		metrics.RecordErrorByComponent("worker", "save_error")
		metrics.RecordErrorByType("save_error", "high")
		w.logger.Error(ctx, "snapshot save failed",
			logger.Int("seq", int(snap.Seq)),
			logger.Error(err),
		)
		return
	}
	w.lastSeq = snap.Seq
	w.written++
	metrics.RecordSnapshotWritten()
	w.logger.Debug(ctx, "snapshot saved",
		logger.Int("seq", int(snap.Seq)),
		logger.Int("comparisons", len(snap.State.History)),
		logger.Duration("took", time.Since(start)),
	)
}

// Shutdown closes the queue so Run drains what is left, then waits.
func (w *Persister) Shutdown(ctx context.Context) error {
	if closer, ok := w.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			w.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Persister) Done() <-chan struct{} {
	return w.done
}

// Stats returns a copy of the persister's counters.
func (w *Persister) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{LastSeq: w.lastSeq, Written: w.written, Skipped: w.skipped, Failures: w.failures}
}
