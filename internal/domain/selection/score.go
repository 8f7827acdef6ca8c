package selection

import (
	"math"

	"github.com/okian/pairrank/internal/domain/model"
)

// Scoring weights and thresholds.
const (
	// RepeatCap excludes a pair from scoring once it has been compared
	// this many times.
	RepeatCap = 3

	// TopCandidates is how many of the best-scored pairs the random pick
	// chooses among.
	TopCandidates = 3

	undersampledTarget = 5
	undersampledBonus  = 15.0
	proximityPeak      = 200.0
	proximityScale     = 100.0

	noveltyNever = 100.0
	noveltyOnce  = 30.0
	noveltyOften = 10.0

	weightUncertainty  = 1.0
	weightProximity    = 0.8
	weightNovelty      = 1.2
	weightUndersampled = 1.5
)

// Score breaks down how informative comparing a pair is expected to be.
type Score struct {
	Uncertainty  float64 `json:"uncertainty"`
	Proximity    float64 `json:"proximity"`
	Novelty      float64 `json:"novelty"`
	Undersampled float64 `json:"undersampled"`
	Total        float64 `json:"total"`
}

// ScorePair scores a pair from both records, the number of times the pair
// was compared, and each item's distinct-pair count.
func ScorePair(a, b model.RatingRecord, timesCompared, countA, countB int) Score {
	s := Score{
		Uncertainty: (a.Uncertainty + b.Uncertainty) / 2,
		Proximity:   proximityPeak / (1 + math.Exp(math.Abs(a.Rating-b.Rating)/proximityScale)),
		Novelty:     novelty(timesCompared),
	}
	deficit := undersampledTarget - min(countA, countB)
	if deficit > 0 {
		s.Undersampled = float64(deficit) * undersampledBonus
	}
	s.Total = s.Uncertainty*weightUncertainty +
		s.Proximity*weightProximity +
		s.Novelty*weightNovelty +
		s.Undersampled*weightUndersampled
	return s
}

func novelty(timesCompared int) float64 {
	switch timesCompared {
	case 0:
		return noveltyNever
	case 1:
		return noveltyOnce
	default:
		return noveltyOften
	}
}
