package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pairrank/internal/adapters/http/api"
	app "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/pkg/logger"
)

func startServer(t *testing.T) *httptest.Server {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger: %v", err)
	}
	dir := t.TempDir()
	for _, n := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("pcm"), 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	svc := app.New(app.WithRecordingsDir(dir))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 100).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateCommand(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		srv := startServer(t)

		convey.Convey("When simulating with a text summary", func() {
			out, err := execute("--url", srv.URL, "--rounds", "12", "--seed", "5")

			convey.Convey("Then the agreement is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "kendall tau")
				convey.So(out, convey.ShouldContainSubstring, "12 submitted")
			})
		})

		convey.Convey("When simulating with a JSON report", func() {
			out, err := execute("--url", srv.URL, "-n", "6", "--seed", "5", "--replay", "1", "--json")

			convey.Convey("Then the report decodes", func() {
				convey.So(err, convey.ShouldBeNil)
				var rep struct {
					Submitted int     `json:"submitted"`
					Replayed  int     `json:"replayed"`
					Tau       float64 `json:"kendall_tau"`
				}
				convey.So(json.Unmarshal([]byte(out), &rep), convey.ShouldBeNil)
				convey.So(rep.Submitted, convey.ShouldEqual, 6)
				convey.So(rep.Replayed, convey.ShouldEqual, 6)
			})
		})
	})

	convey.Convey("Given invalid arguments", t, func() {
		convey.Convey("Then positional arguments are rejected", func() {
			_, err := execute("extra")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then an out-of-range noise fails the run", func() {
			_, err := execute("--noise", "2")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
