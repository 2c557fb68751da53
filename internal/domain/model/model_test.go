package model_test

import (
	"testing"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRating(t *testing.T) {
	convey.Convey("Given classification strings", t, func() {
		convey.Convey("When parsing them", func() {
			cases := map[string]model.Rating{
				"A24": model.RatingA,
				"b":   model.RatingB,
				" C ": model.RatingC,
				"D25": model.RatingD,
				"E":   model.RatingE,
				"U/U": model.RatingU,
				"":    model.RatingU,
				"X":   model.RatingU,
			}

			convey.Convey("Then the first letter decides", func() {
				for in, want := range cases {
					convey.So(model.ParseRating(in), convey.ShouldEqual, want)
				}
			})
		})

		convey.Convey("Then priors follow the doubling scale", func() {
			convey.So(model.RatingA.Prior(), convey.ShouldEqual, 32.0)
			convey.So(model.RatingB.Prior(), convey.ShouldEqual, 16.0)
			convey.So(model.RatingC.Prior(), convey.ShouldEqual, 8.0)
			convey.So(model.RatingD.Prior(), convey.ShouldEqual, 4.0)
			convey.So(model.RatingE.Prior(), convey.ShouldEqual, 2.0)
			convey.So(model.RatingU.Prior(), convey.ShouldEqual, 1.0)
			convey.So(model.Rating("Z").Prior(), convey.ShouldEqual, 1.0)
			convey.So(model.RatingA.Rank(), convey.ShouldBeLessThan, model.RatingU.Rank())
		})
	})
}

func TestObservation(t *testing.T) {
	convey.Convey("Given a 5-3 bout", t, func() {
		obs := model.Observation{A: "Ames", B: "Berg", TouchesA: 5, TouchesB: 3, Source: "pool-1"}

		convey.Convey("Then it is seen correctly from both sides", func() {
			convey.So(obs.Winner(), convey.ShouldEqual, "Ames")
			convey.So(obs.Involves("Berg"), convey.ShouldBeTrue)
			convey.So(obs.Involves("Cole"), convey.ShouldBeFalse)

			opp, scored, received, ok := obs.From("Berg")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(opp, convey.ShouldEqual, "Ames")
			convey.So(scored, convey.ShouldEqual, 3)
			convey.So(received, convey.ShouldEqual, 5)

			_, _, _, ok = obs.From("Cole")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then a tally folds it", func() {
			var tally model.Tally
			tally.Add(5, 3)
			tally.Add(2, 5)
			convey.So(tally.Wins, convey.ShouldEqual, 1)
			convey.So(tally.Losses, convey.ShouldEqual, 1)
			convey.So(tally.Bouts(), convey.ShouldEqual, 2)
			convey.So(tally.Differential(), convey.ShouldEqual, -1)
		})
	})
}

func TestSimulationResultOdds(t *testing.T) {
	convey.Convey("Given a simulation result", t, func() {
		res := model.SimulationResult{Competitors: []model.CompetitorOdds{
			{Seed: 1, Name: "Ames", Rounds: map[string]float64{"Final": 60}},
		}}

		convey.Convey("Then odds are looked up by name and round", func() {
			v, ok := res.Odds("Ames", "Final")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, 60.0)

			_, ok = res.Odds("Berg", "Final")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}
