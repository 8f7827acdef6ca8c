package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/pairrank/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[float64]()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When an id is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "req-1")

			Convey("Then it reports unseen and counts it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And it has no result until one is remembered", func() {
				_, ok := d.Lookup(ctx, "req-1")
				So(ok, ShouldBeFalse)

				d.Remember(ctx, "req-1", 24.0)
				v, ok := d.Lookup(ctx, "req-1")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 24.0)
			})

			Convey("And the same id arrives again", func() {
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the id is unrecorded", func() {
				d.Unrecord(ctx, "req-1")

				Convey("Then it may be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
				})
			})
		})

		Convey("When remembering an unknown id", func() {
			d.Remember(ctx, "ghost", 1)

			Convey("Then nothing is stored", func() {
				_, ok := d.Lookup(ctx, "ghost")
				So(ok, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryDeduperBounds(t *testing.T) {
	Convey("Given a deduper bounded to three ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[string](dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
		}

		Convey("Then the oldest id was evicted", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "req-4"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[int](dedupe.WithMaxSize(0))
		for i := 0; i < 50; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
		}

		Convey("Then every id is kept", func() {
			So(d.Size(), ShouldEqual, 50)
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on one id", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[int]()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "shared") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one of them records it", func() {
			So(fresh, ShouldEqual, 1)
		})
	})
}
