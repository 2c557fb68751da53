package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/http/api"
	service "github.com/nourdesoukizz/Cozmx-fencing/internal/app"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/bracket"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const poolBody = `{
	"pool_id": "P1",
	"fencers": [
		{"name": "Ames", "rating": "A24"},
		{"name": "Berg", "rating": "C23"},
		{"name": "Cole"}
	],
	"scores": [
		[null, 5, 5],
		[3, null, 5],
		[2, 1, null]
	]
}`

func newHandler(t *testing.T, opts ...api.Option) (http.Handler, *service.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithWorkerCount(1),
		service.WithSimulatorOptions(bracket.WithSeed(7), bracket.WithDefaultTrials(500)),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Stop(ctx)
		cancel()
	})
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	return api.NewServer(svc, opts...).Routes(ctx), svc
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(rec.Body.Bytes(), v), ShouldBeNil)
}

func createEvent(h http.Handler, name string) string {
	rec := do(h, http.MethodPost, "/events", `{"name":"`+name+`"}`)
	So(rec.Code, ShouldEqual, http.StatusCreated)
	var ev types.EventSummary
	decode(rec, &ev)
	So(ev.ID, ShouldNotBeEmpty)
	return ev.ID
}

func errorCode(rec *httptest.ResponseRecorder) string {
	var e types.ErrorResponse
	decode(rec, &e)
	return e.Code
}

func TestServer_Events(t *testing.T) {
	Convey("Given an API server", t, func() {
		h, _ := newHandler(t)

		Convey("When creating an event", func() {
			rec := do(h, http.MethodPost, "/events", `{"name":"Cadet Open"}`)

			Convey("Then it is created and listed", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var ev types.EventSummary
				decode(rec, &ev)
				So(ev.Name, ShouldEqual, "Cadet Open")
				So(rec.Header().Get("Location"), ShouldEqual, "/events/"+ev.ID)

				list := do(h, http.MethodGet, "/events", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				var all []types.EventSummary
				decode(list, &all)
				So(all, ShouldHaveLength, 1)
				So(all[0].ID, ShouldEqual, ev.ID)

				got := do(h, http.MethodGet, "/events/"+ev.ID, "")
				So(got.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the name is blank", func() {
			rec := do(h, http.MethodPost, "/events", `{"name":"   "}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(rec), ShouldEqual, "bad_request")
		})

		Convey("When the body is not JSON", func() {
			rec := do(h, http.MethodPost, "/events", `{"name":`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body has trailing data", func() {
			rec := do(h, http.MethodPost, "/events", `{"name":"A"}{"name":"B"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the event does not exist", func() {
			rec := do(h, http.MethodGet, "/events/missing/standings", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(rec), ShouldEqual, "event_not_found")
		})

		Convey("When deleting an event", func() {
			id := createEvent(h, "Closing")
			So(do(h, http.MethodDelete, "/events/"+id, "").Code, ShouldEqual, http.StatusNoContent)
			So(do(h, http.MethodGet, "/events/"+id, "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Results(t *testing.T) {
	Convey("Given an event", t, func() {
		h, _ := newHandler(t)
		id := createEvent(h, "Pools")

		Convey("When a pool sheet is posted", func() {
			rec := do(h, http.MethodPost, "/events/"+id+"/pools", poolBody)

			Convey("Then the pool is ingested and ratings refit", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var report ingest.PoolReport
				decode(rec, &report)
				So(report.PoolID, ShouldEqual, "P1")
				So(report.Observations, ShouldEqual, 3)
				So(report.Results[0].Name, ShouldEqual, "Ames")
				So(report.Results[0].Indicator, ShouldEqual, 5)

				st := do(h, http.MethodGet, "/events/"+id+"/standings", "")
				So(st.Code, ShouldEqual, http.StatusOK)
				var standings types.StandingsResponse
				decode(st, &standings)
				So(standings.Standings, ShouldHaveLength, 3)
				So(standings.Standings[0].Name, ShouldEqual, "Ames")
				So(standings.Converged, ShouldBeTrue)
			})

			Convey("Then posting it again is a conflict", func() {
				again := do(h, http.MethodPost, "/events/"+id+"/pools", poolBody)
				So(again.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(again), ShouldEqual, "duplicate_pool")
			})

			Convey("Then a competitor resolves by partial name", func() {
				list := do(h, http.MethodGet, "/events/"+id+"/competitors?q=ber", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				var names []string
				decode(list, &names)
				So(names, ShouldResemble, []string{"Berg"})

				detail := do(h, http.MethodGet, "/events/"+id+"/competitors/cole", "")
				So(detail.Code, ShouldEqual, http.StatusOK)
				var d model.Detail
				decode(detail, &d)
				So(d.Standing.Name, ShouldEqual, "Cole")
			})

			Convey("Then the trajectory holds one labelled snapshot", func() {
				tr := do(h, http.MethodGet, "/events/"+id+"/trajectory", "")
				So(tr.Code, ShouldEqual, http.StatusOK)
				var resp types.TrajectoryResponse
				decode(tr, &resp)
				So(resp.Snapshots, ShouldHaveLength, 1)
				So(resp.Snapshots[0].Label, ShouldEqual, "Pool P1")

				one := do(h, http.MethodGet, "/events/"+id+"/trajectory?competitor=Ames", "")
				decode(one, &resp)
				So(resp.Competitor, ShouldEqual, "Ames")
				So(resp.Series, ShouldHaveLength, 1)
			})
		})

		Convey("When a pool sheet is malformed", func() {
			rec := do(h, http.MethodPost, "/events/"+id+"/pools", `{"pool_id":"P2","fencers":[{"name":"Solo"}],"scores":[[null]]}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a single bout is posted", func() {
			rec := do(h, http.MethodPost, "/events/"+id+"/bouts", `{"a":"Ames","b":"Dunn","score_a":15,"score_b":11}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)

			list := do(h, http.MethodGet, "/events/"+id+"/bouts", "")
			var bouts types.BoutsResponse
			decode(list, &bouts)
			So(bouts.Bouts, ShouldHaveLength, 1)
			So(bouts.Bouts[0].Source, ShouldEqual, "manual")
		})

		Convey("When a bout score is out of range", func() {
			rec := do(h, http.MethodPost, "/events/"+id+"/bouts", `{"a":"Ames","b":"Berg","score_a":16,"score_b":3}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Predict(t *testing.T) {
	Convey("Given an event with one pool", t, func() {
		h, _ := newHandler(t)
		id := createEvent(h, "Predict")
		So(do(h, http.MethodPost, "/events/"+id+"/pools", poolBody).Code, ShouldEqual, http.StatusCreated)

		Convey("When predicting a known pair", func() {
			rec := do(h, http.MethodGet, "/events/"+id+"/predict?a=ames&b=Berg", "")

			Convey("Then the favourite is the stronger fencer", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var p model.Prediction
				decode(rec, &p)
				So(p.A, ShouldEqual, "Ames")
				So(p.ProbA, ShouldBeGreaterThan, 0.5)
				So(p.ProbA+p.ProbB, ShouldAlmostEqual, 1.0, 1e-9)
				So(p.Pool.Budget, ShouldEqual, 5)
				So(p.DE.Budget, ShouldEqual, 15)
				So(p.History.Bouts, ShouldHaveLength, 1)
			})
		})

		Convey("When a name is unknown", func() {
			rec := do(h, http.MethodGet, "/events/"+id+"/predict?a=Ames&b=Zed", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a name is missing", func() {
			rec := do(h, http.MethodGet, "/events/"+id+"/predict?a=Ames", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Bracket(t *testing.T) {
	Convey("Given an event with one pool", t, func() {
		h, _ := newHandler(t, api.WithSimulateLimit(0, 0))
		id := createEvent(h, "Bracket")
		So(do(h, http.MethodPost, "/events/"+id+"/pools", poolBody).Code, ShouldEqual, http.StatusCreated)

		Convey("When no bracket is set", func() {
			So(do(h, http.MethodGet, "/events/"+id+"/bracket", "").Code, ShouldEqual, http.StatusConflict)
			So(do(h, http.MethodPost, "/events/"+id+"/simulate", "").Code, ShouldEqual, http.StatusConflict)
			So(do(h, http.MethodGet, "/events/"+id+"/simulate", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When seeding fewer than two competitors", func() {
			rec := do(h, http.MethodPut, "/events/"+id+"/bracket", `{"seeds":["Ames"]}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(rec), ShouldEqual, "insufficient_bracket_size")
		})

		Convey("When seeding an unknown competitor", func() {
			rec := do(h, http.MethodPut, "/events/"+id+"/bracket", `{"seeds":["Ames","Zed"]}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the bracket is set and simulated", func() {
			set := do(h, http.MethodPut, "/events/"+id+"/bracket", `{"seeds":["Ames","Berg","Cole"]}`)
			So(set.Code, ShouldEqual, http.StatusOK)
			var b types.BracketResponse
			decode(set, &b)
			So(b.Seeds, ShouldResemble, []string{"Ames", "Berg", "Cole"})
			So(b.Matchups, ShouldHaveLength, 2)

			sim := do(h, http.MethodPost, "/events/"+id+"/simulate?n=400", "")
			So(sim.Code, ShouldEqual, http.StatusOK)
			var res model.SimulationResult
			decode(sim, &res)
			So(res.Trials, ShouldEqual, 400)
			So(res.Size, ShouldEqual, 4)
			So(res.Competitors, ShouldHaveLength, 3)

			last := do(h, http.MethodGet, "/events/"+id+"/simulate", "")
			So(last.Code, ShouldEqual, http.StatusOK)
			var again model.SimulationResult
			decode(last, &again)
			So(again.Trials, ShouldEqual, 400)
		})

		Convey("When n is not a number", func() {
			So(do(h, http.MethodPut, "/events/"+id+"/bracket", `{"seeds":["Ames","Berg"]}`).Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/events/"+id+"/simulate?n=lots", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_RateLimit(t *testing.T) {
	Convey("Given a server allowing one simulation", t, func() {
		h, _ := newHandler(t, api.WithSimulateLimit(0.001, 1))
		id := createEvent(h, "Limited")

		Convey("When simulating twice", func() {
			first := do(h, http.MethodPost, "/events/"+id+"/simulate", "")
			second := do(h, http.MethodPost, "/events/"+id+"/simulate", "")

			Convey("Then the second request is throttled", func() {
				So(first.Code, ShouldEqual, http.StatusConflict)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(second.Header().Get("Retry-After"), ShouldEqual, "1")
				So(errorCode(second), ShouldEqual, "rate_limited")
			})
		})
	})
}

func TestServer_Snapshot(t *testing.T) {
	Convey("Given an event with one pool", t, func() {
		h, _ := newHandler(t)
		src := createEvent(h, "Source")
		So(do(h, http.MethodPost, "/events/"+src+"/pools", poolBody).Code, ShouldEqual, http.StatusCreated)

		Convey("When its snapshot is imported into another event", func() {
			exp := do(h, http.MethodGet, "/events/"+src+"/snapshot", "")
			So(exp.Code, ShouldEqual, http.StatusOK)

			dst := createEvent(h, "Copy")
			imp := do(h, http.MethodPut, "/events/"+dst+"/snapshot", exp.Body.String())

			Convey("Then the copy has the same standings", func() {
				So(imp.Code, ShouldEqual, http.StatusOK)
				var got types.StandingsResponse
				decode(imp, &got)
				So(got.Event, ShouldEqual, dst)
				So(got.Standings, ShouldHaveLength, 3)
				So(got.Standings[0].Name, ShouldEqual, "Ames")

				Convey("And the imported pool cannot be posted again", func() {
					again := do(h, http.MethodPost, "/events/"+dst+"/pools", poolBody)
					So(again.Code, ShouldEqual, http.StatusConflict)
				})
			})
		})

		Convey("When the snapshot version is unsupported", func() {
			rec := do(h, http.MethodPut, "/events/"+src+"/snapshot", `{"version":99}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Ops(t *testing.T) {
	Convey("Given an API server", t, func() {
		h, _ := newHandler(t)

		Convey("Then stats report the running service", func() {
			rec := do(h, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			decode(rec, &stats)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then metrics are exposed", func() {
			do(h, http.MethodGet, "/events", "")
			rec := do(h, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "touchrank_http_requests_total")
		})

		Convey("Then the API docs are served", func() {
			So(do(h, http.MethodGet, "/openapi.yaml", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestServer_Stream(t *testing.T) {
	Convey("Given a subscriber on an event stream", t, func() {
		h, _ := newHandler(t)
		srv := httptest.NewServer(h)
		defer srv.Close()

		id := createEvent(h, "Live")
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/" + id + "/stream"
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer ws.Close()
		_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

		var hello types.StreamMessage
		So(ws.ReadJSON(&hello), ShouldBeNil)
		So(hello.Type, ShouldEqual, types.StreamHello)
		So(hello.Event, ShouldEqual, id)

		Convey("When a pool is ingested", func() {
			resp, err := http.Post(srv.URL+"/events/"+id+"/pools", "application/json", bytes.NewBufferString(poolBody))
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			Convey("Then the subscriber receives the refit", func() {
				var msg types.StreamMessage
				So(ws.ReadJSON(&msg), ShouldBeNil)
				So(msg.Type, ShouldEqual, types.StreamRefit)
				So(msg.Snapshot, ShouldNotBeNil)
				So(msg.Snapshot.Label, ShouldEqual, "Pool P1")
				So(msg.Standings, ShouldHaveLength, 3)
			})
		})
	})
}

func TestServer_StreamOrigins(t *testing.T) {
	Convey("Given a server that admits one extra origin", t, func() {
		h, _ := newHandler(t, api.WithAllowedOrigins(" https://scores.example/ "))
		srv := httptest.NewServer(h)
		defer srv.Close()

		id := createEvent(h, "Live")
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/" + id + "/stream"
		dial := func(origin string) (int, error) {
			header := http.Header{}
			if origin != "" {
				header.Set("Origin", origin)
			}
			ws, resp, err := websocket.DefaultDialer.Dial(url, header)
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			if err != nil {
				if resp != nil {
					return resp.StatusCode, err
				}
				return 0, err
			}
			_ = ws.Close()
			return http.StatusSwitchingProtocols, nil
		}

		Convey("Then the server's own origin and the listed one connect", func() {
			for _, origin := range []string{"", srv.URL, "https://scores.example", "HTTPS://Scores.Example"} {
				code, err := dial(origin)
				So(err, ShouldBeNil)
				So(code, ShouldEqual, http.StatusSwitchingProtocols)
			}
		})

		Convey("Then any other origin is refused", func() {
			code, err := dial("https://elsewhere.example")
			So(err, ShouldNotBeNil)
			So(code, ShouldEqual, http.StatusForbidden)
		})
	})

	Convey("Given a server that admits any origin", t, func() {
		h, _ := newHandler(t, api.WithAllowedOrigins("*"))
		srv := httptest.NewServer(h)
		defer srv.Close()

		id := createEvent(h, "Live")
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/" + id + "/stream"
		ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://elsewhere.example"}})
		So(err, ShouldBeNil)
		_ = ws.Close()
	})
}
