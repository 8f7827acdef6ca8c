package rating_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestUpdateRule(t *testing.T) {
	Convey("Given the update rule helpers", t, func() {
		Convey("Then the K-factor grows with uncertainty and caps at 48", func() {
			So(rating.KFactor(0), ShouldEqual, 32)
			So(rating.KFactor(25), ShouldEqual, 40)
			So(rating.KFactor(50), ShouldEqual, 48)
			So(rating.KFactor(100), ShouldEqual, 48)
		})

		Convey("Then the expected score follows the Elo logistic", func() {
			So(rating.ExpectedScore(1000, 1000), ShouldEqual, 0.5)
			So(rating.ExpectedScore(1400, 1000), ShouldAlmostEqual, 10.0/11.0, tolerance)
			So(rating.ExpectedScore(1000, 1400), ShouldAlmostEqual, 1.0/11.0, tolerance)
		})

		Convey("Then the decay stays within [0.75, 0.85]", func() {
			So(rating.UncertaintyDecay(0.5), ShouldAlmostEqual, 0.85, tolerance)
			So(rating.UncertaintyDecay(1), ShouldAlmostEqual, 0.75, tolerance)
			So(rating.UncertaintyDecay(0), ShouldAlmostEqual, 0.75, tolerance)
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given two fresh items A and B", t, func() {
		s := rating.NewStore(rating.WithClock(fixedClock()))
		s.GetOrInit("A")
		s.GetOrInit("B")

		Convey("When A beats B", func() {
			delta, err := s.Resolve("A", "B")
			So(err, ShouldBeNil)
			a, _ := s.Record("A")
			b, _ := s.Record("B")

			Convey("Then both ratings move by 48 * 0.5", func() {
				So(a.Rating, ShouldAlmostEqual, 1024, tolerance)
				So(b.Rating, ShouldAlmostEqual, 976, tolerance)
				So(delta, ShouldAlmostEqual, 24, tolerance)
			})

			Convey("Then both uncertainties decay by 0.85", func() {
				So(a.Uncertainty, ShouldAlmostEqual, 85, tolerance)
				So(b.Uncertainty, ShouldAlmostEqual, 85, tolerance)
			})

			Convey("Then both counters advance by one", func() {
				So(a.Comparisons, ShouldEqual, 1)
				So(b.Comparisons, ShouldEqual, 1)
			})

			Convey("Then the event is logged with the winner first", func() {
				h := s.History()
				So(h, ShouldHaveLength, 1)
				So(h[0].Winner, ShouldEqual, model.Item("A"))
				So(h[0].Loser, ShouldEqual, model.Item("B"))
				So(h[0].Time.IsZero(), ShouldBeFalse)
				So(s.TimesCompared(model.NewPair("B", "A")), ShouldEqual, 1)
				So(s.ComparedPairs(), ShouldResemble, []model.Pair{{A: "A", B: "B"}})
			})

			Convey("And the same judgment is applied again", func() {
				_, err := s.Resolve("A", "B")
				So(err, ShouldBeNil)
				a2, _ := s.Record("A")

				Convey("Then the state changes a second time", func() {
					So(a2.Rating, ShouldBeGreaterThan, a.Rating)
					So(a2.Comparisons, ShouldEqual, 2)
					So(s.HistoryLen(), ShouldEqual, 2)
					So(s.TimesCompared(model.NewPair("A", "B")), ShouldEqual, 2)
				})
			})
		})

		Convey("When an item is compared with itself", func() {
			_, err := s.Resolve("A", "A")

			Convey("Then it fails with an invalid comparison and mutates nothing", func() {
				So(errors.Is(err, rating.ErrInvalidComparison), ShouldBeTrue)
				So(errors.Is(err, rating.ErrSameItem), ShouldBeTrue)
				a, _ := s.Record("A")
				So(a, ShouldResemble, model.NewRecord())
				So(s.HistoryLen(), ShouldEqual, 0)
			})
		})

		Convey("When an unknown item takes part", func() {
			_, errW := s.Resolve("ghost", "B")
			_, errL := s.Resolve("A", "ghost")

			Convey("Then it fails atomically", func() {
				So(errors.Is(errW, rating.ErrInvalidComparison), ShouldBeTrue)
				So(errors.Is(errL, rating.ErrUnknownItem), ShouldBeTrue)
				b, _ := s.Record("B")
				So(b, ShouldResemble, model.NewRecord())
				So(s.HistoryLen(), ShouldEqual, 0)
				_, ok := s.Record("ghost")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestResolveInvariants(t *testing.T) {
	Convey("Given a store with ten items and a random judgment stream", t, func() {
		rng := rand.New(rand.NewSource(7))
		s := rating.NewStore()
		items := make([]model.Item, 10)
		for i := range items {
			items[i] = model.Item(fmt.Sprintf("song-%02d.mp3", i))
			s.GetOrInit(items[i])
		}

		Convey("Then every update honours the record invariants", func() {
			for step := 0; step < 500; step++ {
				w := items[rng.Intn(len(items))]
				l := items[rng.Intn(len(items))]
				if w == l {
					continue
				}
				wb, _ := s.Record(w)
				lb, _ := s.Record(l)
				expected := rating.ExpectedScore(wb.Rating, lb.Rating)

				_, err := s.Resolve(w, l)
				So(err, ShouldBeNil)
				wa, _ := s.Record(w)
				la, _ := s.Record(l)

				if expected < 1 {
					So(wa.Rating, ShouldBeGreaterThan, wb.Rating)
					So(la.Rating, ShouldBeLessThan, lb.Rating)
				}
				for _, pair := range [][2]model.RatingRecord{{wb, wa}, {lb, la}} {
					So(pair[1].Uncertainty, ShouldBeGreaterThanOrEqualTo, 15)
					So(pair[1].Uncertainty, ShouldBeLessThanOrEqualTo, pair[0].Uncertainty)
					So(pair[1].Comparisons, ShouldEqual, pair[0].Comparisons+1)
				}
			}
		})
	})
}

func TestLoadAndIndex(t *testing.T) {
	Convey("Given persisted records and history", t, func() {
		s := rating.NewStore()
		history := []model.ComparisonEvent{
			{Winner: "a", Loser: "b"},
			{Winner: "b", Loser: "a"},
			{Winner: "c", Loser: "a"},
		}
		s.Load(map[model.Item]model.RatingRecord{
			"a": {Rating: 1010, Uncertainty: 60, Comparisons: 3},
			"b": model.LegacyRecord(750),
			"c": {Rating: 990, Uncertainty: 2, Comparisons: 1},
		}, history)

		Convey("Then records are normalized on load", func() {
			c, _ := s.Record("c")
			So(c.Uncertainty, ShouldEqual, 15)
			b, _ := s.Record("b")
			So(b.Comparisons, ShouldEqual, 10)
		})

		Convey("Then the compared-pair index reflects the log", func() {
			So(s.TimesCompared(model.NewPair("a", "b")), ShouldEqual, 2)
			So(s.TimesCompared(model.NewPair("a", "c")), ShouldEqual, 1)
			So(s.ComparedPairs(), ShouldHaveLength, 2)
		})

		Convey("When a pair is presented but not resolved", func() {
			s.MarkPresented(model.NewPair("b", "c"))

			Convey("Then it joins the index without a logged comparison", func() {
				So(s.ComparedPairs(), ShouldHaveLength, 3)
				So(s.TimesCompared(model.NewPair("b", "c")), ShouldEqual, 0)
			})

			Convey("And the index is rebuilt from the log", func() {
				s.RebuildComparedPairs()

				Convey("Then only logged pairs remain", func() {
					So(s.ComparedPairs(), ShouldHaveLength, 2)
				})
			})
		})

		Convey("Then GetOrInit leaves known items alone and seeds new ones", func() {
			So(s.GetOrInit("a").Rating, ShouldEqual, 1010)
			So(s.GetOrInit("d"), ShouldResemble, model.NewRecord())
			So(s.Len(), ShouldEqual, 4)
			So(s.Records(), ShouldHaveLength, 4)
		})

		Convey("Then History returns a copy", func() {
			h := s.History()
			h[0].Winner = "mutated"
			So(s.History()[0].Winner, ShouldEqual, model.Item("a"))
		})
	})
}
