package rating

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock sets the time source used to stamp comparison events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store owns every item's RatingRecord and the comparison log.
//
// The store is not safe for concurrent use: callers serialize mutations so
// at most one comparison resolves at a time.
type Store struct {
	records map[model.Item]model.RatingRecord
	history []model.ComparisonEvent

	// compared holds pairs presented at least once. It is an index over
	// history plus pairs marked presented but not yet resolved.
	compared map[model.Pair]struct{}
	// resolved counts log entries per pair.
	resolved map[model.Pair]int

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records:  make(map[model.Item]model.RatingRecord),
		compared: make(map[model.Pair]struct{}),
		resolved: make(map[model.Pair]int),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store's state with persisted records and history and
// rebuilds the derived pair index from the log.
func (s *Store) Load(records map[model.Item]model.RatingRecord, history []model.ComparisonEvent) {
	s.records = make(map[model.Item]model.RatingRecord, len(records))
	for it, rec := range records {
		s.records[it] = rec.Normalize()
	}
	s.history = append([]model.ComparisonEvent(nil), history...)
	s.RebuildComparedPairs()
}

// GetOrInit returns the record for it, seeding defaults on first sight.
func (s *Store) GetOrInit(it model.Item) model.RatingRecord {
	if rec, ok := s.records[it]; ok {
		return rec
	}
	rec := model.NewRecord()
	s.records[it] = rec
	return rec
}

// Record returns the record for it.
func (s *Store) Record(it model.Item) (model.RatingRecord, bool) {
	rec, ok := s.records[it]
	return rec, ok
}

// Resolve applies one judgment: winner was preferred over loser. Both
// records and the log are updated together; on a contract violation
// nothing is mutated. The returned value is the winner's rating change.
func (s *Store) Resolve(winner, loser model.Item) (float64, error) {
	if winner == loser {
		return 0, fmt.Errorf("%w: %q", ErrSameItem, winner)
	}
	w, ok := s.records[winner]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, winner)
	}
	l, ok := s.records[loser]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, loser)
	}

	res := Apply(w, l)
	s.records[winner] = res.Winner
	s.records[loser] = res.Loser

	ev := model.ComparisonEvent{Winner: winner, Loser: loser, Time: s.now()}
	s.history = append(s.history, ev)
	p := ev.Pair()
	s.compared[p] = struct{}{}
	s.resolved[p]++

	return res.Delta, nil
}

// MarkPresented records that p was shown to the rater.
func (s *Store) MarkPresented(p model.Pair) {
	s.compared[p] = struct{}{}
}

// RebuildComparedPairs recomputes the pair index from the log alone.
// Pairs that were presented but never resolved are dropped.
func (s *Store) RebuildComparedPairs() {
	s.compared = make(map[model.Pair]struct{}, len(s.history))
	s.resolved = make(map[model.Pair]int, len(s.history))
	for _, ev := range s.history {
		p := ev.Pair()
		s.compared[p] = struct{}{}
		s.resolved[p]++
	}
}

// ComparedPairs returns the presented pairs in a stable order.
func (s *Store) ComparedPairs() []model.Pair {
	out := make([]model.Pair, 0, len(s.compared))
	for p := range s.compared {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// TimesCompared returns how many logged comparisons involved p.
func (s *Store) TimesCompared(p model.Pair) int {
	return s.resolved[p]
}

// History returns a copy of the comparison log.
func (s *Store) History() []model.ComparisonEvent {
	return append([]model.ComparisonEvent(nil), s.history...)
}

// HistoryLen returns the number of logged comparisons.
func (s *Store) HistoryLen() int {
	return len(s.history)
}

// Records returns a copy of every record.
func (s *Store) Records() map[model.Item]model.RatingRecord {
	out := make(map[model.Item]model.RatingRecord, len(s.records))
	for it, rec := range s.records {
		out[it] = rec
	}
	return out
}

// Len returns the number of items with a record.
func (s *Store) Len() int {
	return len(s.records)
}
