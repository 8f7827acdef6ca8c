package simulation

import (
	"math/rand"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/pairrank/internal/domain/model"
)

// Rater is a simulated listener with a fixed hidden preference. An item's
// quality is derived from its name and the seed, so the ordering is the
// same no matter in which order items are first seen.
type Rater struct {
	seed  string
	noise float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRater creates a rater whose judgments are flipped with probability noise.
func NewRater(seed int64, noise float64) *Rater {
	return &Rater{
		seed:  strconv.FormatInt(seed, 10),
		noise: noise,
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // simulated noise
	}
}

// Quality is the hidden score of it; higher is preferred.
func (r *Rater) Quality(it model.Item) uint64 {
	return xxhash.Sum64String(r.seed + "/" + string(it))
}

// Prefers reports whether a is truly preferred over b. Equal qualities
// fall back to name order.
func (r *Rater) Prefers(a, b model.Item) bool {
	qa, qb := r.Quality(a), r.Quality(b)
	if qa != qb {
		return qa > qb
	}
	return a < b
}

// Judge returns the winner and loser of a listening session.
func (r *Rater) Judge(a, b model.Item) (winner, loser model.Item) {
	winner, loser = a, b
	if !r.Prefers(a, b) {
		winner, loser = b, a
	}
	if r.noise > 0 && r.chance(r.noise) {
		winner, loser = loser, winner
	}
	return winner, loser
}

// TrueOrder sorts items by hidden quality, best first.
func (r *Rater) TrueOrder(items []model.Item) []model.Item {
	out := append([]model.Item(nil), items...)
	sort.Slice(out, func(i, j int) bool { return r.Prefers(out[i], out[j]) })
	return out
}

func (r *Rater) chance(p float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < p
}
