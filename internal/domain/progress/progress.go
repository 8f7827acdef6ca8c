// Package progress summarizes how settled the current ranking is.
package progress

import (
	"math"
	"sort"

	"github.com/okian/pairrank/internal/domain/model"
)

// Report tuning.
const (
	coverageWeight   = 0.4
	confidenceWeight = 0.6

	// Below this adjusted confidence the report carries suggestions.
	suggestBelow     = 90.0
	maxSuggested     = 10
	focusItemsToShow = 3
)

// Input is the ranking state a report is computed from.
type Input struct {
	// Items are the selectable items.
	Items []model.Item
	// Records are all known records, including items no longer selectable.
	Records         map[model.Item]model.RatingRecord
	TotalComparisons int
	UniquePairs     int
}

// FocusItem is an item whose rating is least settled.
type FocusItem struct {
	Item        model.Item `json:"item"`
	Uncertainty float64    `json:"uncertainty"`
}

// Report is the overall ranking confidence summary.
type Report struct {
	TotalItems           int         `json:"total_items"`
	TotalComparisons     int         `json:"total_comparisons"`
	UniquePairs          int         `json:"unique_pairs"`
	PossiblePairs        int         `json:"possible_pairs"`
	CoveragePct          float64     `json:"coverage_pct"`
	AvgUncertainty       float64     `json:"avg_uncertainty"`
	ConfidencePct        float64     `json:"confidence_pct"`
	AdjustedConfidence   float64     `json:"adjusted_confidence"`
	Advice               string      `json:"advice"`
	SuggestedComparisons int         `json:"suggested_comparisons,omitempty"`
	Focus                []FocusItem `json:"focus,omitempty"`
}

// Compute builds the report for in.
func Compute(in Input) (Report, error) {
	n := len(in.Items)
	if n < 2 {
		return Report{}, ErrInsufficientItems
	}

	r := Report{
		TotalItems:       n,
		TotalComparisons: in.TotalComparisons,
		UniquePairs:      in.UniquePairs,
		PossiblePairs:    n * (n - 1) / 2,
		AvgUncertainty:   model.MaxUncertainty,
	}
	if r.PossiblePairs > 0 {
		r.CoveragePct = float64(r.UniquePairs) / float64(r.PossiblePairs) * 100
	}
	if len(in.Records) > 0 {
		var sum float64
		for _, rec := range in.Records {
			sum += rec.Uncertainty
		}
		r.AvgUncertainty = sum / float64(len(in.Records))
	}
	r.ConfidencePct = clamp(100 - r.AvgUncertainty)
	r.AdjustedConfidence = coverageWeight*r.CoveragePct + confidenceWeight*r.ConfidencePct
	r.Advice = Advice(r.AdjustedConfidence)

	if r.AdjustedConfidence < suggestBelow {
		r.SuggestedComparisons = max(0, min(maxSuggested, r.PossiblePairs-r.UniquePairs))
		r.Focus = mostUncertain(in.Records, focusItemsToShow)
	}
	return r, nil
}

// Advice maps an adjusted confidence to a short recommendation.
func Advice(adjusted float64) string {
	switch {
	case adjusted < 30:
		return "Keep comparing more songs to improve confidence"
	case adjusted < 60:
		return "Ranking is forming, but needs more comparisons"
	case adjusted < 80:
		return "Ranking is fairly reliable"
	default:
		return "Ranking is highly confident"
	}
}

// mostUncertain returns up to n items by uncertainty descending, ties by item.
func mostUncertain(records map[model.Item]model.RatingRecord, n int) []FocusItem {
	out := make([]FocusItem, 0, len(records))
	for it, rec := range records {
		out = append(out, FocusItem{Item: it, Uncertainty: rec.Uncertainty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uncertainty != out[j].Uncertainty {
			return out[i].Uncertainty > out[j].Uncertainty
		}
		return out[i].Item < out[j].Item
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
