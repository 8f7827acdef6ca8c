// Package repository holds the standings index over rated items.
package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithPrioritySeed mixes seed into node priorities. Different seeds give
// differently shaped trees over the same items.
func WithPrioritySeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.prioritySeed = seed
	}
}
