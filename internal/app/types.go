package service

import (
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/selection"
)

// Presentation is a pair offered to the rater.
type Presentation struct {
	PairID  string             `json:"pair_id"`
	A       model.Item         `json:"a"`
	B       model.Item         `json:"b"`
	RecordA model.RatingRecord `json:"record_a"`
	RecordB model.RatingRecord `json:"record_b"`
	Path    string             `json:"path"`
	// Score is set when the pair came from the scored path.
	Score *selection.Score `json:"score,omitempty"`
}

// Judgment is the rater's answer: Winner was preferred over Loser.
type Judgment struct {
	// RequestID makes a submission idempotent when set.
	RequestID string     `json:"request_id,omitempty"`
	Winner    model.Item `json:"winner"`
	Loser     model.Item `json:"loser"`
}

// Outcome is the result of applying a judgment.
type Outcome struct {
	Winner       model.Item         `json:"winner"`
	Loser        model.Item         `json:"loser"`
	RatingDelta  float64            `json:"rating_delta"`
	WinnerRecord model.RatingRecord `json:"winner_record"`
	LoserRecord  model.RatingRecord `json:"loser_record"`
	// Comparisons is the log length after this judgment.
	Comparisons int `json:"comparisons"`
	// Replayed is true when the outcome was served from the idempotency cache.
	Replayed bool `json:"replayed,omitempty"`
}
