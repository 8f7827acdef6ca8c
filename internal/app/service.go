// Package service provides the ranking service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pairrank/internal/adapters/catalog"
	"github.com/okian/pairrank/internal/adapters/mq/queue"
	"github.com/okian/pairrank/internal/adapters/mq/worker"
	"github.com/okian/pairrank/internal/adapters/repository"
	"github.com/okian/pairrank/internal/adapters/storage"
	"github.com/okian/pairrank/internal/domain/dedupe"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/progress"
	"github.com/okian/pairrank/internal/domain/rating"
	"github.com/okian/pairrank/internal/domain/selection"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
)

const defaultStopTimeout = 10 * time.Second

// Service implements the API dependencies for the ranking engine. Start
// must be called before any other method.
//
// mu serializes every read and write of the rating state, so at most one
// comparison resolves at a time. lifeMu guards Start and Stop only.
type Service struct {
	lifeMu sync.Mutex
	mu     sync.RWMutex

	// Core components
	store     *rating.Store
	selector  *selection.Selector
	standings repository.Store
	deduper   dedupe.Deduper[Outcome]
	storage   storage.Store
	queue     *queue.InMemoryQueue
	persister *worker.Persister
	watcher   *catalog.Watcher

	// Configuration
	recordingsDir string
	extensions    []string
	watch         bool
	queueSize     int
	dedupeSize    int
	stopTimeout   time.Duration
	selectorOpts  []selection.Option
	now           func() time.Time

	// State
	items   []model.Item
	seq     uint64
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		recordingsDir: "recordings",
		extensions:    catalog.DefaultExtensions,
		queueSize:     64,
		dedupeSize:    10_000,
		stopTimeout:   defaultStopTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = rating.NewStore(rating.WithClock(s.now))
	s.selector = selection.NewSelector(s.selectorOpts...)
	s.standings = repository.NewTreapStore()
	s.deduper = dedupe.NewInMemoryDeduper[Outcome](dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start loads persisted state, scans the catalog and starts the background
// persister and directory watcher.
func (s *Service) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting ranking service...")

	if s.storage != nil {
		st, err := s.storage.Load(ctx)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		s.mu.Lock()
		s.store.Load(st.Ratings, st.History)
		s.mu.Unlock()
		s.logger.Info(ctx, "loaded persisted state",
			logger.Int("items", len(st.Ratings)),
			logger.Int("comparisons", len(st.History)),
		)
	}

	s.mu.Lock()
	s.rebuildStandingsLocked(ctx)
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if s.storage != nil {
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
		s.persister = worker.NewPersister(s.queue, s.storage, worker.WithLogger(s.logger.Named("persister")))
		go s.persister.Run(runCtx)
	}

	if _, err := s.Refresh(ctx); err != nil {
		cancel()
		return err
	}

	if s.watch {
		w, err := catalog.NewWatcher(s.recordingsDir, func(ctx context.Context) {
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "catalog refresh failed", logger.Error(err))
			}
		}, catalog.WithExtensions(s.extensions), catalog.WithWatcherLogger(s.logger.Named("catalog")))
		if err != nil {
			s.logger.Warn(ctx, "recordings watcher disabled", logger.Error(err))
		} else {
			s.watcher = w
			w.Start(runCtx)
		}
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.mu.RLock()
	s.logger.Info(ctx, "ranking service started",
		logger.Int("items", len(s.items)),
		logger.Int("records", s.store.Len()),
		logger.Int("comparisons", s.store.HistoryLen()),
		logger.Bool("persistent", s.storage != nil),
		logger.Bool("watching", s.watcher != nil),
	)
	s.mu.RUnlock()
	return nil
}

// Stop gracefully shuts down the service and writes the final state.
func (s *Service) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	// The watcher calls Refresh, which takes mu; stop it before anything else.
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, "error stopping watcher", logger.Error(err))
		}
		s.watcher = nil
	}

	// The final save and Close must not race a write still in flight.
	idle := true
	if s.persister != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.stopTimeout)
		err := s.persister.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			s.logger.Error(ctx, "persister shutdown failed", logger.Error(err))
			idle = s.abortPersister()
		}

		if idle {
			s.mu.RLock()
			seq, st := s.seq, s.snapshotLocked()
			s.mu.RUnlock()
			if s.persister.Stats().LastSeq < seq {
				if err := s.storage.Save(ctx, st); err != nil {
					s.logger.Error(ctx, "final save failed", logger.Error(err))
				}
			}
		}
	}
	if s.storage != nil {
		if idle {
			if err := s.storage.Close(); err != nil {
				s.logger.Warn(ctx, "error closing storage", logger.Error(err))
			}
		} else {
			s.logger.Error(ctx, "persister still writing; final save skipped and storage left open")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.logger.Info(ctx, "ranking service stopped")
}

// rebuildStandingsLocked makes the standings mirror the rating store,
// dropping rows for items a reload no longer knows.
func (s *Service) rebuildStandingsLocked(ctx context.Context) {
	records := s.store.Records()
	if n := s.standings.Count(ctx); n > 0 {
		rows, _ := s.standings.TopN(ctx, n)
		for _, row := range rows {
			if _, ok := records[row.Item]; !ok {
				s.standings.Remove(ctx, row.Item)
			}
		}
	}
	for it, rec := range records {
		_ = s.standings.Upsert(ctx, it, rec)
	}
}

// abortPersister cancels the persister's context and waits for its loop to
// exit. It reports false if the worker is still running after stopTimeout.
func (s *Service) abortPersister() bool {
	if s.cancel != nil {
		s.cancel()
	}
	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()
	select {
	case <-s.persister.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Refresh re-scans the recordings directory. New items are seeded with
// default records; items gone from disk keep their records but are no
// longer selectable. Returns the number of selectable items.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	items, err := catalog.Scan(s.recordingsDir, s.extensions)
	if err != nil {
		metrics.RecordCatalogError()
		metrics.RecordErrorByComponent("catalog", "scan_error")
		return 0, fmt.Errorf("scan recordings: %w", err)
	}

	s.mu.Lock()
	var added int
	for _, it := range items {
		if _, ok := s.store.Record(it); !ok {
			rec := s.store.GetOrInit(it)
			_ = s.standings.Upsert(ctx, it, rec)
			added++
		}
	}
	s.items = items
	if added > 0 {
		s.enqueueLocked(ctx)
	}
	s.updateGaugesLocked()
	s.mu.Unlock()

	metrics.RecordCatalogRefresh()
	metrics.UpdateItemsTotal(len(items))
	s.logger.Info(ctx, "catalog refreshed", logger.Int("items", len(items)), logger.Int("added", added))
	return len(items), nil
}

// NextPair selects the next pair to compare and marks it presented.
func (s *Service) NextPair(ctx context.Context) (Presentation, error) {
	s.mu.Lock()
	sel, ok := s.selector.SelectPair(s.items, s.store)
	if !ok {
		s.mu.Unlock()
		return Presentation{}, ErrInsufficientItems
	}
	s.store.MarkPresented(sel.Pair())
	recA := s.store.GetOrInit(sel.First)
	recB := s.store.GetOrInit(sel.Second)
	s.updateGaugesLocked()
	s.mu.Unlock()

	metrics.RecordPairSelection(string(sel.Path))

	p := Presentation{
		PairID:  uuid.NewString(),
		A:       sel.First,
		B:       sel.Second,
		RecordA: recA,
		RecordB: recB,
		Path:    string(sel.Path),
	}
	if sel.Path == selection.PathScored {
		score := sel.Score
		p.Score = &score
	}
	s.logger.Debug(ctx, "pair selected",
		logger.String("pair_id", p.PairID),
		logger.String("a", string(p.A)),
		logger.String("b", string(p.B)),
		logger.String("path", p.Path),
	)
	return p, nil
}

// Submit applies a judgment. With a RequestID, a repeated submission
// returns the first outcome and leaves the state untouched.
func (s *Service) Submit(ctx context.Context, j Judgment) (Outcome, error) {
	if j.Winner == "" || j.Loser == "" {
		return Outcome{}, ErrInvalidJudgment
	}

	if j.RequestID != "" && s.deduper.SeenAndRecord(ctx, j.RequestID) {
		out, ok := s.deduper.Lookup(ctx, j.RequestID)
		if !ok {
			return Outcome{}, ErrRequestInFlight
		}
		metrics.RecordDuplicateRequest()
		s.logger.Debug(ctx, "replayed judgment", logger.String("request_id", j.RequestID))
		out.Replayed = true
		return out, nil
	}

	s.mu.Lock()
	delta, err := s.store.Resolve(j.Winner, j.Loser)
	if err != nil {
		s.mu.Unlock()
		if j.RequestID != "" {
			s.deduper.Unrecord(ctx, j.RequestID)
		}
		metrics.RecordInvalidComparison()
		metrics.RecordErrorByComponent("service", "invalid_comparison")
		return Outcome{}, err
	}
	winner, _ := s.store.Record(j.Winner)
	loser, _ := s.store.Record(j.Loser)
	_ = s.standings.Upsert(ctx, j.Winner, winner)
	_ = s.standings.Upsert(ctx, j.Loser, loser)
	out := Outcome{
		Winner:       j.Winner,
		Loser:        j.Loser,
		RatingDelta:  delta,
		WinnerRecord: winner,
		LoserRecord:  loser,
		Comparisons:  s.store.HistoryLen(),
	}
	s.enqueueLocked(ctx)
	s.updateGaugesLocked()
	s.mu.Unlock()

	if j.RequestID != "" {
		s.deduper.Remember(ctx, j.RequestID, out)
	}
	metrics.RecordComparison(delta)
	s.logger.Info(ctx, "comparison resolved",
		logger.String("winner", string(j.Winner)),
		logger.String("loser", string(j.Loser)),
		logger.Float64("delta", delta),
		logger.Int("comparisons", out.Comparisons),
	)
	return out, nil
}

// Rankings returns up to limit standings rows; limit < 1 means all.
// Standings are written under mu, so holding it shared keeps both sides
// of a comparison in the same view.
func (s *Service) Rankings(ctx context.Context, limit int) ([]repository.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit < 1 {
		limit = s.standings.Count(ctx)
	}
	if limit < 1 {
		return []repository.Entry{}, nil
	}
	return s.standings.TopN(ctx, limit)
}

// Rank returns the standings row for item.
func (s *Service) Rank(ctx context.Context, item model.Item) (repository.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.standings.Rank(ctx, item)
}

// Progress reports how settled the ranking is.
func (s *Service) Progress(_ context.Context) (progress.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return progress.Compute(s.progressInputLocked())
}

// Candidates returns the best-scored pairs the selector would choose from.
func (s *Service) Candidates(_ context.Context, limit int) []selection.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selector.Candidates(s.items, s.store, limit)
}

// Items returns the selectable items.
func (s *Service) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Item(nil), s.items...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"items":          len(s.items),
		"records":        s.store.Len(),
		"comparisons":    s.store.HistoryLen(),
		"compared_pairs": len(s.store.ComparedPairs()),
		"dedupe_size":    s.deduper.Size(),
		"persistent":     s.storage != nil,
		"mutations":      s.seq,
	}
	if s.queue != nil {
		stats["persist_queue_length"] = s.queue.Len(ctx)
	}
	if s.persister != nil {
		stats["persister"] = s.persister.Stats()
	}
	return stats
}

// enqueueLocked hands the current state to the persister. Must hold mu.
func (s *Service) enqueueLocked(ctx context.Context) {
	s.seq++
	if s.queue == nil {
		return
	}
	snap := queue.Snapshot{Seq: s.seq, State: s.snapshotLocked(), At: s.now()}
	if !s.queue.Enqueue(ctx, snap) {
		// A later snapshot or the final save on Stop covers this state.
		s.logger.Warn(ctx, "persist queue full, snapshot dropped", logger.Int("seq", int(s.seq)))
	}
}

// snapshotLocked copies the persistent state. Must hold mu.
func (s *Service) snapshotLocked() storage.State {
	return storage.State{Ratings: s.store.Records(), History: s.store.History()}
}

func (s *Service) progressInputLocked() progress.Input {
	return progress.Input{
		Items:            s.items,
		Records:          s.store.Records(),
		TotalComparisons: s.store.HistoryLen(),
		UniquePairs:      len(s.store.ComparedPairs()),
	}
}

// updateGaugesLocked refreshes state gauges. Must hold mu.
func (s *Service) updateGaugesLocked() {
	in := s.progressInputLocked()
	if r, err := progress.Compute(in); err == nil {
		metrics.UpdateMeanUncertainty(r.AvgUncertainty)
		if r.PossiblePairs > 0 {
			metrics.UpdatePairCoverage(float64(r.UniquePairs) / float64(r.PossiblePairs))
		}
	} else if !errors.Is(err, progress.ErrInsufficientItems) {
		s.logger.Warn(context.Background(), "progress failed", logger.Error(err))
	}
}
