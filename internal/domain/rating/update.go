// Package rating implements the Elo-style rating store and its update rule.
package rating

import (
	"math"

	"github.com/okian/pairrank/internal/domain/model"
)

// Update rule constants.
const (
	BaseK         = 32.0
	MaxKFactor    = 1.5 * BaseK
	eloScale      = 400.0
	baseDecay     = 0.85
	certaintyStep = 0.1
)

// KFactor returns the learning rate for an item with the given uncertainty.
// It grows with uncertainty and is capped at 1.5x BaseK.
func KFactor(uncertainty float64) float64 {
	return math.Min(MaxKFactor, BaseK*(1+uncertainty/100))
}

// ExpectedScore is the logistic probability that an item rated winner beats
// one rated loser.
func ExpectedScore(winner, loser float64) float64 {
	return 1 / (1 + math.Pow(10, (loser-winner)/eloScale))
}

// UncertaintyDecay returns the multiplicative decay for a comparison whose
// winner had the given expected score. Toss-ups decay by 0.85, outcomes the
// rating gap already implied decay by 0.75.
func UncertaintyDecay(expected float64) float64 {
	certainty := math.Abs(0.5-expected) * 2
	return baseDecay - certainty*certaintyStep
}

// Result holds the records produced by one application of the update rule.
type Result struct {
	Winner   model.RatingRecord
	Loser    model.RatingRecord
	Expected float64
	// Delta is |new winner rating - old winner rating|.
	Delta float64
}

// Apply runs the update rule for one judgment. It does not mutate its inputs.
func Apply(winner, loser model.RatingRecord) Result {
	kw := KFactor(winner.Uncertainty)
	kl := KFactor(loser.Uncertainty)

	expected := ExpectedScore(winner.Rating, loser.Rating)
	surprise := 1 - expected
	decay := UncertaintyDecay(expected)

	nw := model.RatingRecord{
		Rating:      winner.Rating + kw*surprise,
		Uncertainty: math.Max(model.MinUncertainty, winner.Uncertainty*decay),
		Comparisons: winner.Comparisons + 1,
	}
	nl := model.RatingRecord{
		Rating:      loser.Rating - kl*surprise,
		Uncertainty: math.Max(model.MinUncertainty, loser.Uncertainty*decay),
		Comparisons: loser.Comparisons + 1,
	}

	return Result{
		Winner:   nw,
		Loser:    nl,
		Expected: expected,
		Delta:    math.Abs(nw.Rating - winner.Rating),
	}
}
