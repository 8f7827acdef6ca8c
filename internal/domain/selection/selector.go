// Package selection proposes the next pair of items to compare.
//
// The policy is greedy and single-step: bring every item into play first,
// then score all eligible pairs on uncertainty, rating proximity, novelty
// and sampling deficit and pick randomly among the best few.
package selection

import (
	"math/rand"
	"sort"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
)

// Path names the branch of the policy that produced a selection.
type Path string

// Selection paths.
const (
	PathColdStart Path = "cold_start"
	PathScored    Path = "scored"
	PathFallback  Path = "fallback"
)

// View is the read-only ranking state the selector needs.
type View interface {
	Record(it model.Item) (model.RatingRecord, bool)
	// ComparedPairs returns the pairs presented at least once.
	ComparedPairs() []model.Pair
	// TimesCompared returns how many logged comparisons involved p.
	TimesCompared(p model.Pair) int
}

// Rand is the random source the selector draws from. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Selection is a proposed pair in presentation order.
type Selection struct {
	First  model.Item
	Second model.Item
	Path   Path
	// Score is set on the scored path only.
	Score Score
}

// Pair returns the selection's unordered pair.
func (s Selection) Pair() model.Pair {
	return model.NewPair(s.First, s.Second)
}

// Candidate is a scored pair eligible for selection.
type Candidate struct {
	First  model.Item `json:"first"`
	Second model.Item `json:"second"`
	Score  Score      `json:"score"`
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithRand sets the random source, e.g. a seeded *rand.Rand in tests.
func WithRand(r Rand) Option {
	return func(s *Selector) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSeed seeds a private random source. A zero seed keeps the time-seeded default.
func WithSeed(seed int64) Option {
	return func(s *Selector) {
		if seed != 0 {
			s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // selection randomness is not security sensitive
		}
	}
}

// Selector picks comparison pairs. It never mutates the view.
type Selector struct {
	rng Rand
}

// NewSelector creates a selector with configuration options.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection randomness is not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectPair proposes the next pair among items. It reports false only when
// fewer than two distinct items exist.
func (s *Selector) SelectPair(items []model.Item, view View) (Selection, bool) {
	items = distinct(items)
	if len(items) < 2 {
		return Selection{}, false
	}

	counts := PairCounts(items, view.ComparedPairs())

	var fresh []model.Item
	for _, it := range items {
		if counts[it] == 0 {
			fresh = append(fresh, it)
		}
	}
	switch {
	case len(fresh) >= 2:
		a, b := s.sample2(fresh)
		return Selection{First: a, Second: b, Path: PathColdStart}, true
	case len(fresh) == 1:
		return Selection{First: fresh[0], Second: leastCompared(items, fresh[0], counts), Path: PathColdStart}, true
	}

	cands := rankCandidates(items, view, counts)
	if len(cands) > 0 {
		top := min(TopCandidates, len(cands))
		c := cands[s.rng.Intn(top)]
		return Selection{First: c.First, Second: c.Second, Path: PathScored, Score: c.Score}, true
	}

	a, b := s.sample2(items)
	return Selection{First: a, Second: b, Path: PathFallback}, true
}

// Candidates returns up to limit scored pairs, best first. A limit below 1
// returns all of them.
func (s *Selector) Candidates(items []model.Item, view View, limit int) []Candidate {
	items = distinct(items)
	cands := rankCandidates(items, view, PairCounts(items, view.ComparedPairs()))
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

// PairCounts tallies, for each item, the distinct compared pairs it belongs to.
func PairCounts(items []model.Item, pairs []model.Pair) map[model.Item]int {
	counts := make(map[model.Item]int, len(items))
	for _, it := range items {
		counts[it] = 0
	}
	for _, p := range pairs {
		counts[p.A]++
		counts[p.B]++
	}
	return counts
}

// rankCandidates scores every eligible pair and sorts them by total score
// descending; equal totals keep generation order.
func rankCandidates(items []model.Item, view View, counts map[model.Item]int) []Candidate {
	var out []Candidate
	for i, a := range items {
		ra := recordOf(view, a)
		for _, b := range items[i+1:] {
			times := view.TimesCompared(model.NewPair(a, b))
			if times >= RepeatCap {
				continue
			}
			out = append(out, Candidate{
				First:  a,
				Second: b,
				Score:  ScorePair(ra, recordOf(view, b), times, counts[a], counts[b]),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score.Total > out[j].Score.Total
	})
	return out
}

func recordOf(view View, it model.Item) model.RatingRecord {
	if rec, ok := view.Record(it); ok {
		return rec
	}
	return model.NewRecord()
}

// leastCompared returns the item other than skip with the lowest count;
// ties go to the earliest item.
func leastCompared(items []model.Item, skip model.Item, counts map[model.Item]int) model.Item {
	var best model.Item
	found := false
	for _, it := range items {
		if it == skip {
			continue
		}
		if !found || counts[it] < counts[best] {
			best, found = it, true
		}
	}
	return best
}

// sample2 draws two distinct members of items uniformly. len(items) >= 2.
func (s *Selector) sample2(items []model.Item) (model.Item, model.Item) {
	i := s.rng.Intn(len(items))
	j := s.rng.Intn(len(items) - 1)
	if j >= i {
		j++
	}
	return items[i], items[j]
}

func distinct(items []model.Item) []model.Item {
	seen := make(map[model.Item]struct{}, len(items))
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
