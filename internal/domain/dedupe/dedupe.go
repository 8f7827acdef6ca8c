// Package dedupe tracks idempotency keys for comparison submissions.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Default cache bound.
const defaultMaxSize = 10_000

// Deduper records seen request IDs and the result produced for each.
type Deduper[V any] interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Remember attaches the result produced for a recorded id.
	Remember(ctx context.Context, id string, v V)

	// Lookup returns the result attached to id, if any.
	Lookup(ctx context.Context, id string) (V, bool)

	// Unrecord removes an id, allowing it to be retried. Used when the
	// request failed after SeenAndRecord.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry[V any] struct {
	id    string
	value V
	set   bool
}

// inMemoryDeduper keeps up to maxSize ids and evicts the oldest first.
// A maxSize of 0 or less means unbounded.
type inMemoryDeduper[V any] struct {
	mu      sync.Mutex
	byID    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper[V any](opts ...Option) Deduper[V] {
	cfg := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &inMemoryDeduper[V]{
		byID:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: cfg.maxSize,
	}
}

func (d *inMemoryDeduper[V]) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.byID[id] = d.order.PushBack(&entry[V]{id: id})
	return false
}

func (d *inMemoryDeduper[V]) Remember(_ context.Context, id string, v V) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.byID[id]; ok {
		e := el.Value.(*entry[V])
		e.value, e.set = v, true
	}
}

func (d *inMemoryDeduper[V]) Lookup(_ context.Context, id string) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero V
	el, ok := d.byID[id]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !e.set {
		return zero, false
	}
	return e.value, true
}

func (d *inMemoryDeduper[V]) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.byID[id]; ok {
		d.order.Remove(el)
		delete(d.byID, id)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper[V]) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.byID, front.Value.(*entry[V]).id)
}

func (d *inMemoryDeduper[V]) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
