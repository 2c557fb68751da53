package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/http/api"
	service "github.com/nourdesoukizz/Cozmx-fencing/internal/app"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/bracket"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/replay"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const fixture = "../../internal/replay/testdata/regional.yaml"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithSimulatorOptions(bracket.WithSeed(3), bracket.WithDefaultTrials(300)),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	srv := httptest.NewServer(api.NewServer(svc, api.WithLogger(logger.Nop()), api.WithSimulateLimit(0, 0)).Routes(ctx))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(ctx)
		cancel()
	})
	return srv
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFencectl(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := newServer(t)

		Convey("When a fixture is replayed", func() {
			out, err := execute("--server", srv.URL, "replay", fixture, "-n", "200")

			Convey("Then the tables are printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "event Regional Open")
				So(out, ShouldContainSubstring, "Pool P1 (3 bouts)")
				So(out, ShouldContainSubstring, "Standings after 7 bouts")
				So(out, ShouldContainSubstring, "Ames v Dunn")
				So(out, ShouldContainSubstring, "Bracket of 4, 200 trials")
			})

			Convey("Then the event can be queried", func() {
				events, err := replay.NewClient(srv.URL).Events(context.Background())
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				id := events[0].ID

				out, err := execute("--server", srv.URL, "events")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, id)

				out, err = execute("--server", srv.URL, "standings", id)
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Fox")

				out, err = execute("--server", srv.URL, "predict", id, "berg", "eng")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Berg v Eng")
				So(out, ShouldContainSubstring, "DE to 15")

				out, err = execute("--server", srv.URL, "simulate", id, "--seeds", "Ames, Dunn", "-n", "100")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Bracket of 2, 100 trials")
			})
		})

		Convey("When the event is unknown", func() {
			_, err := execute("--server", srv.URL, "standings", "missing")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "404")
		})

		Convey("When arguments are missing", func() {
			_, err := execute("--server", srv.URL, "predict", "only-one")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSplitSeeds(t *testing.T) {
	Convey("Given a loosely written seed list", t, func() {
		So(splitSeeds(" Ames, Dunn,,Berg "), ShouldResemble, []string{"Ames", "Dunn", "Berg"})
	})
}
