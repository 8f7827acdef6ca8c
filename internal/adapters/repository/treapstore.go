// Package repository holds the standings index over rated items.
package repository

import (
	"context"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then item ASC (deterministic).
// "less" means ranks earlier, so in-order traversal produces the
// standings from best to worst.

// ratingScale controls fixed-point scaling from float64.
const ratingScale = 1_000_000_000 // 9 decimal places

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * ratingScale
	if scaled >= float64(math.MaxInt64) {
		return ratingFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(scaled))
}

// treap node
type node struct {
	id     model.Item
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) should appear before (bRating, bID).
func less(aRating ratingFP, aID model.Item, bRating ratingFP, bID model.Item) bool {
	if aRating != bRating {
		return aRating > bRating // higher rating ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, fresh *node) *node {
	if n == nil {
		fresh.size = 1
		return fresh
	}
	if less(fresh.rating, fresh.id, n.rating, n.id) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id model.Item, rating ratingFP) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && id == n.id {
		// Rotate the higher-priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	} else if less(rating, id, n.rating, n.id) {
		n.left = deleteNode(n.left, id, rating)
	} else {
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// walk visits nodes in rank order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n) {
		return false
	}
	return walk(n.right, visit)
}

type TreapStore struct {
	mu           sync.RWMutex
	root         *node
	byID         map[model.Item]model.RatingRecord
	fixed        map[model.Item]ratingFP
	prioritySeed uint64
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:  make(map[model.Item]model.RatingRecord),
		fixed: make(map[model.Item]ratingFP),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// priority derives a stable pseudo-random heap priority from the item name.
func (s *TreapStore) priority(id model.Item) uint64 {
	return xxhash.Sum64String(string(id)) ^ s.prioritySeed
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(_ context.Context, item model.Item, rec model.RatingRecord) error {
	nr := toFixedPoint(rec.Rating)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.fixed[item]; ok {
		if old == nr {
			s.byID[item] = rec
			return nil
		}
		s.root = deleteNode(s.root, item, old)
	}
	s.byID[item] = rec
	s.fixed[item] = nr
	s.root = insert(s.root, &node{id: item, rating: nr, prio: s.priority(item)})
	return nil
}

// Remove implements Store.Remove.
func (s *TreapStore) Remove(_ context.Context, item model.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.fixed[item]
	if !ok {
		return false
	}
	s.root = deleteNode(s.root, item, old)
	delete(s.byID, item)
	delete(s.fixed, item)
	return true
}

// Rank returns the current row for an item.
func (s *TreapStore) Rank(_ context.Context, item model.Item) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.fixed[item]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	// Dense rank: one plus the number of distinct ratings above target.
	rank := 0
	var prev ratingFP
	walk(s.root, func(n *node) bool {
		if n.rating < target {
			return false
		}
		if rank == 0 || n.rating != prev {
			rank++
			prev = n.rating
		}
		return n.rating != target
	})
	return s.entry(item, rank), nil
}

// TopN returns the top N rows ordered by rating desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	rank := 0
	var prev ratingFP
	walk(s.root, func(nd *node) bool {
		if rank == 0 || nd.rating != prev {
			rank++
			prev = nd.rating
		}
		out = append(out, s.entry(nd.id, rank))
		return len(out) < n
	})
	return out, nil
}

// Count returns the number of items in the standings.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// entry must be called with s.mu held.
func (s *TreapStore) entry(item model.Item, rank int) Entry {
	rec := s.byID[item]
	return Entry{
		Rank:        rank,
		Item:        item,
		Rating:      rec.Rating,
		Uncertainty: rec.Uncertainty,
		Comparisons: rec.Comparisons,
		Confidence:  rec.Confidence(),
	}
}
