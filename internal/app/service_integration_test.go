package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/adapters/repository"
	"github.com/okian/pairrank/internal/adapters/storage"
	"github.com/okian/pairrank/internal/domain/model"
)

func runSession(svc *service.Service, rounds int) {
	ctx := context.Background()
	for i := 0; i < rounds; i++ {
		p, err := svc.NextPair(ctx)
		So(err, ShouldBeNil)
		// The alphabetically earlier item always wins.
		w, l := p.A, p.B
		if l < w {
			w, l = l, w
		}
		_, err = svc.Submit(ctx, service.Judgment{Winner: w, Loser: l})
		So(err, ShouldBeNil)
	}
}

func TestServiceIntegration_JSONRestart(t *testing.T) {
	Convey("Given a service persisting to JSON files", t, func() {
		ctx := context.Background()
		dir := recordingsDir(t, "a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3")
		stateDir := t.TempDir()
		open := func() storage.Store {
			return storage.NewJSONFileStore(
				filepath.Join(stateDir, "song_rankings.json"),
				filepath.Join(stateDir, "comparison_history.json"),
			)
		}

		first := startedService(t, dir, service.WithStorage(open()))
		runSession(first, 12)
		// Presented but never judged.
		_, err := first.NextPair(ctx)
		So(err, ShouldBeNil)

		before, err := first.Rankings(ctx, 0)
		So(err, ShouldBeNil)
		beforeProgress, err := first.Progress(ctx)
		So(err, ShouldBeNil)
		first.Stop()

		Convey("When a new service starts on the same files", func() {
			second := startedService(t, dir, service.WithStorage(open()))
			defer second.Stop()

			Convey("Then the standings are restored exactly", func() {
				after, err := second.Rankings(ctx, 0)
				So(err, ShouldBeNil)
				So(after, ShouldResemble, before)
			})

			Convey("Then the log is restored and the pair index rebuilt from it", func() {
				r, err := second.Progress(ctx)
				So(err, ShouldBeNil)
				So(r.TotalComparisons, ShouldEqual, 12)
				So(r.UniquePairs, ShouldBeLessThanOrEqualTo, beforeProgress.UniquePairs)
			})

			Convey("Then the earliest items lead", func() {
				top, err := second.Rankings(ctx, 1)
				So(err, ShouldBeNil)
				So(top[0].Item, ShouldEqual, model.Item("a.mp3"))
			})
		})
	})
}

func TestServiceIntegration_RestartDropsStaleRows(t *testing.T) {
	Convey("Given a stopped service whose ratings file lost an item", t, func() {
		ctx := context.Background()
		dir := recordingsDir(t, "a.mp3", "b.mp3", "c.mp3")
		rankings := filepath.Join(t.TempDir(), "song_rankings.json")
		st := storage.NewJSONFileStore(rankings, filepath.Join(t.TempDir(), "comparison_history.json"))

		svc := startedService(t, dir, service.WithStorage(st))
		rows, err := svc.Rankings(ctx, 0)
		So(err, ShouldBeNil)
		So(rows, ShouldHaveLength, 3)
		svc.Stop()

		So(os.Remove(filepath.Join(dir, "c.mp3")), ShouldBeNil)
		So(os.WriteFile(rankings, []byte(`{"a.mp3": 1010, "b.mp3": 990}`), 0o600), ShouldBeNil)

		Convey("When the same service starts again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the standings hold only the reloaded items", func() {
				rows, err := svc.Rankings(ctx, 0)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Item, ShouldEqual, model.Item("a.mp3"))
				_, err = svc.Rank(ctx, "c.mp3")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_Badger(t *testing.T) {
	Convey("Given a service persisting to an in-memory badger DB", t, func() {
		ctx := context.Background()
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		So(err, ShouldBeNil)
		defer db.Close()

		dir := recordingsDir(t, "x.wav", "y.wav", "z.wav")
		first := startedService(t, dir, service.WithStorage(storage.NewBadgerStore(db)), service.WithQueueSize(1))
		runSession(first, 6)
		first.Stop()

		Convey("When the state is read back", func() {
			st, err := storage.NewBadgerStore(db).Load(ctx)

			Convey("Then the final state was written despite the tiny queue", func() {
				So(err, ShouldBeNil)
				So(st.History, ShouldHaveLength, 6)
				So(st.Ratings, ShouldHaveLength, 3)
				var total int
				for _, rec := range st.Ratings {
					total += rec.Comparisons
				}
				So(total, ShouldEqual, 12)
			})
		})
	})
}
