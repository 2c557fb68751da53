package replay_test

import (
	"errors"
	"testing"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/replay"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadFixture(t *testing.T) {
	Convey("Given the regional fixture", t, func() {
		f, err := replay.LoadFixture("testdata/regional.yaml")

		Convey("Then it decodes every section", func() {
			So(err, ShouldBeNil)
			So(f.Event, ShouldEqual, "Regional Open")
			So(f.Competitors, ShouldHaveLength, 6)
			So(f.Competitors[0].Rating, ShouldEqual, "A24")
			So(f.Pools, ShouldHaveLength, 2)
			So(f.Pools[0].Scores[0][0], ShouldBeNil)
			So(*f.Pools[0].Scores[1][0], ShouldEqual, 3)
			So(f.Pools[0].Indicators, ShouldResemble, []int{5, 2, -7})
			So(f.Bouts[0].Source, ShouldEqual, "de")
			So(f.Bracket, ShouldResemble, []string{"Ames", "Dunn", "Berg", "Eng"})
			So(f.Predictions[1], ShouldResemble, replay.Pair{A: "cole", B: "fox"})
			So(f.Simulations, ShouldEqual, 500)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := replay.LoadFixture("testdata/absent.yaml")
		So(err, ShouldNotBeNil)
	})
}

func TestParseFixture(t *testing.T) {
	Convey("Given malformed fixtures", t, func() {
		cases := map[string]string{
			"no event name":  "bouts: [{a: A, b: B, score_a: 5, score_b: 3}]",
			"nothing to run": "event: Empty",
			"unknown key":    "event: X\nbouts: [{a: A, b: B, score_a: 5, score_b: 3}]\nreferee: Z",
			"one fencer pool": `event: X
pools:
  - pool_id: P1
    fencers: [{name: Solo}]
    scores: [[null]]`,
			"repeated pool id": `event: X
pools:
  - {pool_id: P1, fencers: [{name: A}, {name: B}], scores: [[null, 5], [3, null]]}
  - {pool_id: P1, fencers: [{name: C}, {name: D}], scores: [[null, 5], [3, null]]}`,
			"bout over fifteen":   "event: X\nbouts: [{a: A, b: B, score_a: 16, score_b: 3}]",
			"half a prediction":   "event: X\nbouts: [{a: A, b: B, score_a: 5, score_b: 3}]\npredictions: [{a: A}]",
			"negative simulation": "event: X\nbouts: [{a: A, b: B, score_a: 5, score_b: 3}]\nsimulations: -1",
			"not yaml":            "event: [",
		}
		for name, doc := range cases {
			Convey("When the fixture has "+name, func() {
				_, err := replay.ParseFixture([]byte(doc))
				So(errors.Is(err, replay.ErrInvalidFixture), ShouldBeTrue)
			})
		}
	})

	Convey("Given a bouts-only fixture", t, func() {
		f, err := replay.ParseFixture([]byte("event: Ladder\nbouts: [{a: A, b: B, score_a: 5, score_b: 3}]"))
		So(err, ShouldBeNil)
		So(f.Bouts, ShouldHaveLength, 1)
		So(f.Pools, ShouldBeEmpty)
	})
}
