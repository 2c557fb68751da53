package bracket

import (
	"context"
	"errors"
	"testing"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newEngine(ctx context.Context, entrants ...model.Entrant) *engine.Engine {
	e := engine.New(engine.WithLogger(logger.Nop()))
	if err := e.Register(ctx, entrants...); err != nil {
		panic(err)
	}
	return e
}

func unrated(names ...string) []model.Entrant {
	out := make([]model.Entrant, len(names))
	for i, n := range names {
		out[i] = model.Entrant{Name: n, Rating: "U"}
	}
	return out
}

func TestLayout(t *testing.T) {
	Convey("Given bracket sizes", t, func() {
		So(Size(2), ShouldEqual, 2)
		So(Size(3), ShouldEqual, 4)
		So(Size(4), ShouldEqual, 4)
		So(Size(5), ShouldEqual, 8)
		So(Size(16), ShouldEqual, 16)
		So(Size(17), ShouldEqual, 32)

		Convey("Then positions follow the standard fold", func() {
			So(Positions(4), ShouldResemble, [][2]int{{1, 4}, {2, 3}})
			So(Positions(8), ShouldResemble, [][2]int{{1, 8}, {4, 5}, {2, 7}, {3, 6}})
			So(Positions(16), ShouldResemble, [][2]int{
				{1, 16}, {8, 9}, {4, 13}, {5, 12}, {2, 15}, {7, 10}, {3, 14}, {6, 11},
			})
		})

		Convey("Then rounds are labelled by competitors remaining", func() {
			So(RoundLabels(2), ShouldResemble, []string{"Final", "Champion"})
			So(RoundLabels(32), ShouldResemble, []string{
				"Round of 32", "Round of 16", "Quarterfinal", "Semifinal", "Final", "Champion",
			})
		})
	})
}

func TestSetBracket(t *testing.T) {
	Convey("Given a simulator over five unrated fencers", t, func() {
		ctx := context.Background()
		e := newEngine(ctx, unrated("S1", "S2", "S3", "S4", "S5")...)
		sim := New(e, WithLogger(logger.Nop()))

		Convey("Then it starts unset", func() {
			So(sim.State(), ShouldEqual, StateUnset)
			_, err := sim.Simulate(ctx, 10)
			So(errors.Is(err, model.ErrBracketNotSet), ShouldBeTrue)
			_, err = sim.Bracket()
			So(errors.Is(err, model.ErrBracketNotSet), ShouldBeTrue)
		})

		Convey("When too few seeds are given", func() {
			err := sim.SetBracket(ctx, []string{"S1"})
			So(errors.Is(err, model.ErrInsufficientBracketSize), ShouldBeTrue)
			So(sim.State(), ShouldEqual, StateUnset)
		})

		Convey("When a seed is unknown or duplicated", func() {
			err := sim.SetBracket(ctx, []string{"S1", "Ghost"})
			So(errors.Is(err, model.ErrUnknownCompetitor), ShouldBeTrue)
			err = sim.SetBracket(ctx, []string{"S1", "S2", "S1"})
			So(errors.Is(err, model.ErrInvalidObservation), ShouldBeTrue)
		})

		Convey("When five seeds are set", func() {
			So(sim.SetBracket(ctx, []string{"S1", "S2", "S3", "S4", "S5"}), ShouldBeNil)

			Convey("Then the three top seeds receive the byes", func() {
				So(sim.State(), ShouldEqual, StateSeeded)
				m, err := sim.Bracket()
				So(err, ShouldBeNil)
				So(m, ShouldResemble, []model.Matchup{
					{Top: "S1", TopSeed: 1},
					{Top: "S4", TopSeed: 4, Bottom: "S5", BottomSeed: 5},
					{Top: "S2", TopSeed: 2},
					{Top: "S3", TopSeed: 3},
				})
			})
		})
	})
}

func TestSimulate(t *testing.T) {
	Convey("Given four equal fencers and no bouts", t, func() {
		ctx := context.Background()
		e := newEngine(ctx, unrated("A", "B", "C", "D")...)
		sim := New(e, WithLogger(logger.Nop()), WithSeed(42), WithWorkers(4))
		So(sim.SetBracket(ctx, []string{"A", "B", "C", "D"}), ShouldBeNil)

		Convey("When simulating the default number of trials", func() {
			res, err := sim.Simulate(ctx, 0)
			So(err, ShouldBeNil)

			Convey("Then each reaches the final about half the time and wins about a quarter", func() {
				So(res.Trials, ShouldEqual, DefaultTrials)
				So(res.Rounds, ShouldResemble, []string{"Semifinal", "Final", "Champion"})
				var champ float64
				for _, c := range res.Competitors {
					So(c.Rounds["Semifinal"], ShouldEqual, 100.0)
					So(c.Rounds["Final"], ShouldAlmostEqual, 50.0, 3.0)
					So(c.Rounds["Champion"], ShouldAlmostEqual, 25.0, 3.0)
					champ += c.Rounds["Champion"]
				}
				So(champ, ShouldAlmostEqual, 100.0, 1e-9)
				So(sim.State(), ShouldEqual, StateSimulated)
				last, ok := sim.Last()
				So(ok, ShouldBeTrue)
				So(last, ShouldResemble, res)
			})

			Convey("Then a fixed seed reproduces the run", func() {
				again, err := sim.Simulate(ctx, 0)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})

			Convey("Then setting the bracket again discards the result", func() {
				So(sim.SetBracket(ctx, []string{"D", "C", "B", "A"}), ShouldBeNil)
				So(sim.State(), ShouldEqual, StateSeeded)
				_, ok := sim.Last()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := sim.Simulate(cctx, 5000)

			Convey("Then the run is abandoned and nothing changes", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(sim.State(), ShouldEqual, StateSeeded)
			})
		})
	})

	Convey("Given a three-fencer bracket after some bouts", t, func() {
		ctx := context.Background()
		e := newEngine(ctx, model.Entrant{Name: "Top", Rating: "A"}, model.Entrant{Name: "Mid", Rating: "C"}, model.Entrant{Name: "Low", Rating: "U"})
		_, err := e.Apply(ctx, engine.Batch{Observations: []model.Observation{
			{A: "Top", B: "Low", TouchesA: 5, TouchesB: 0},
			{A: "Mid", B: "Low", TouchesA: 5, TouchesB: 1},
		}})
		So(err, ShouldBeNil)
		sim := New(e, WithLogger(logger.Nop()), WithSeed(7), WithWorkers(3))
		So(sim.SetBracket(ctx, []string{"Top", "Mid", "Low"}), ShouldBeNil)

		res, err := sim.Simulate(ctx, 3000)
		So(err, ShouldBeNil)

		Convey("Then the bye seed always advances out of the first round", func() {
			v, ok := res.Odds("Top", "Final")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 100.0)
		})

		Convey("Then percentages never increase from one round to the next", func() {
			for _, c := range res.Competitors {
				prev := 100.0
				for _, label := range res.Rounds {
					So(c.Rounds[label], ShouldBeLessThanOrEqualTo, prev)
					prev = c.Rounds[label]
				}
			}
		})

		Convey("Then the trial count is capped", func() {
			capped := New(e, WithLogger(logger.Nop()), WithMaxTrials(100), WithWorkers(8))
			So(capped.SetBracket(ctx, []string{"Top", "Mid"}), ShouldBeNil)
			r, err := capped.Simulate(ctx, 5000)
			So(err, ShouldBeNil)
			So(r.Trials, ShouldEqual, 100)
			So(r.Rounds, ShouldResemble, []string{"Final", "Champion"})
		})
	})
}
