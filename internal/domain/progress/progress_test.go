package progress_test

import (
	"errors"
	"testing"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/progress"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompute(t *testing.T) {
	Convey("Given fewer than two items", t, func() {
		_, err := progress.Compute(progress.Input{Items: []model.Item{"only.mp3"}})

		Convey("Then the report is refused", func() {
			So(errors.Is(err, progress.ErrInsufficientItems), ShouldBeTrue)
		})
	})

	Convey("Given four fresh items and no comparisons", t, func() {
		items := []model.Item{"a", "b", "c", "d"}
		recs := map[model.Item]model.RatingRecord{}
		for _, it := range items {
			recs[it] = model.NewRecord()
		}
		r, err := progress.Compute(progress.Input{Items: items, Records: recs})

		Convey("Then confidence is zero and suggestions are offered", func() {
			So(err, ShouldBeNil)
			So(r.PossiblePairs, ShouldEqual, 6)
			So(r.CoveragePct, ShouldEqual, 0)
			So(r.AvgUncertainty, ShouldEqual, 100)
			So(r.ConfidencePct, ShouldEqual, 0)
			So(r.AdjustedConfidence, ShouldEqual, 0)
			So(r.Advice, ShouldEqual, "Keep comparing more songs to improve confidence")
			So(r.SuggestedComparisons, ShouldEqual, 6)
			So(r.Focus, ShouldHaveLength, 3)
			So(r.Focus[0].Item, ShouldEqual, model.Item("a"))
		})
	})

	Convey("Given partial coverage and settled records", t, func() {
		items := []model.Item{"a", "b", "c"}
		recs := map[model.Item]model.RatingRecord{
			"a": {Rating: 1100, Uncertainty: 20},
			"b": {Rating: 1000, Uncertainty: 40},
			"c": {Rating: 900, Uncertainty: 30},
		}
		r, err := progress.Compute(progress.Input{Items: items, Records: recs, TotalComparisons: 7, UniquePairs: 2})

		Convey("Then the weighted confidence combines coverage and certainty", func() {
			So(err, ShouldBeNil)
			So(r.TotalComparisons, ShouldEqual, 7)
			So(r.CoveragePct, ShouldAlmostEqual, 200.0/3.0, 1e-9)
			So(r.AvgUncertainty, ShouldAlmostEqual, 30, 1e-9)
			So(r.ConfidencePct, ShouldAlmostEqual, 70, 1e-9)
			So(r.AdjustedConfidence, ShouldAlmostEqual, 0.4*200.0/3.0+0.6*70, 1e-9)
			So(r.Advice, ShouldEqual, "Ranking is fairly reliable")
			So(r.SuggestedComparisons, ShouldEqual, 1)
			So(r.Focus[0].Item, ShouldEqual, model.Item("b"))
		})
	})

	Convey("Given full coverage and floor uncertainty", t, func() {
		items := []model.Item{"a", "b"}
		recs := map[model.Item]model.RatingRecord{
			"a": {Rating: 1050, Uncertainty: 15},
			"b": {Rating: 950, Uncertainty: 15},
		}
		r, _ := progress.Compute(progress.Input{Items: items, Records: recs, TotalComparisons: 9, UniquePairs: 1})

		Convey("Then the report is confident and carries no suggestions", func() {
			So(r.AdjustedConfidence, ShouldAlmostEqual, 40+0.6*85, 1e-9)
			So(r.Advice, ShouldEqual, "Ranking is highly confident")
			So(r.SuggestedComparisons, ShouldEqual, 0)
			So(r.Focus, ShouldBeEmpty)
		})
	})
}

func TestAdvice(t *testing.T) {
	Convey("Given the advice thresholds", t, func() {
		So(progress.Advice(29.9), ShouldStartWith, "Keep comparing")
		So(progress.Advice(30), ShouldStartWith, "Ranking is forming")
		So(progress.Advice(60), ShouldEqual, "Ranking is fairly reliable")
		So(progress.Advice(80), ShouldEqual, "Ranking is highly confident")
	})
}
