// Package repository holds the standings index over rated items.
package repository

import (
	"context"

	"github.com/okian/pairrank/internal/domain/model"
)

// Entry represents a standings row.
type Entry struct {
	Rank        int        `json:"rank"`
	Item        model.Item `json:"item"`
	Rating      float64    `json:"rating"`
	Uncertainty float64    `json:"uncertainty"`
	Comparisons int        `json:"comparisons"`
	Confidence  float64    `json:"confidence"`
}

// Store provides read/write access to the standings.
type Store interface {
	// Upsert sets the record for item, repositioning it if the rating moved.
	Upsert(ctx context.Context, item model.Item, rec model.RatingRecord) error

	// Remove drops item from the standings. Returns false if it was absent.
	Remove(ctx context.Context, item model.Item) bool

	// Rank returns the current row for item.
	// Returns ErrNotFound if the item is unknown.
	Rank(ctx context.Context, item model.Item) (Entry, error)

	// TopN returns the top-N rows ordered by rating desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of items in the standings.
	Count(ctx context.Context) int
}
