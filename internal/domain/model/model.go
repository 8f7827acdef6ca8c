// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Rating defaults and bounds.
const (
	DefaultRating      = 1000.0
	DefaultUncertainty = 100.0
	MinUncertainty     = 15.0
	MaxUncertainty     = 100.0

	// Legacy bare ratings carry no metadata, so they import as a
	// medium-confidence prior.
	LegacyUncertainty = 50.0
	LegacyComparisons = 10
)

// Item identifies a ranked entity, e.g. a recording's file name.
type Item string

// RatingRecord is the per-item ranking state.
type RatingRecord struct {
	Rating      float64 `json:"rating"`
	Uncertainty float64 `json:"uncertainty"`
	Comparisons int     `json:"comparisons"`
}

// NewRecord returns the record seeded on first sight of an item.
func NewRecord() RatingRecord {
	return RatingRecord{Rating: DefaultRating, Uncertainty: DefaultUncertainty}
}

// LegacyRecord converts a bare numeric rating into a full record.
func LegacyRecord(rating float64) RatingRecord {
	return RatingRecord{Rating: rating, Uncertainty: LegacyUncertainty, Comparisons: LegacyComparisons}
}

// Normalize clamps a record loaded from outside into the valid ranges.
func (r RatingRecord) Normalize() RatingRecord {
	if math.IsNaN(r.Uncertainty) {
		r.Uncertainty = MaxUncertainty
	}
	r.Uncertainty = math.Max(MinUncertainty, math.Min(MaxUncertainty, r.Uncertainty))
	if r.Comparisons < 0 {
		r.Comparisons = 0
	}
	return r
}

// Confidence returns 100 - uncertainty clamped to [0, 100].
func (r RatingRecord) Confidence() float64 {
	return math.Max(0, math.Min(100, 100-r.Uncertainty))
}

// ComparisonEvent is one resolved judgment. Events are append-only.
type ComparisonEvent struct {
	Winner Item
	Loser  Item
	Time   time.Time
}

// Pair returns the unordered pair the event compared.
func (e ComparisonEvent) Pair() Pair {
	return NewPair(e.Winner, e.Loser)
}

// Pair is an unordered item pair; A <= B always holds.
type Pair struct {
	A Item
	B Item
}

// NewPair builds the canonical form of {a, b}.
func NewPair(a, b Item) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Contains reports whether it is one of the pair's members.
func (p Pair) Contains(it Item) bool {
	return p.A == it || p.B == it
}
