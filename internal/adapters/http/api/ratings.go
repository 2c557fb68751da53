package api

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

func standings(eventID string, v *engine.View) types.StandingsResponse {
	return types.StandingsResponse{
		Event:      eventID,
		Sequence:   v.Sequence(),
		Iterations: v.Iterations(),
		Converged:  v.Converged(),
		FieldMean:  v.FieldMean(),
		Standings:  v.Standings(),
	}
}

// handleStandings handles GET /events/{eventID}/standings.
func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap("api.standings", err))
		return
	}
	writeJSON(w, http.StatusOK, standings(ev.Info().ID, ev.Engine().View()))
}

// handleRefit handles POST /events/{eventID}/refit.
func (s *Server) handleRefit(w http.ResponseWriter, r *http.Request) {
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap("api.refit", err))
		return
	}
	writeJSON(w, http.StatusOK, standings(ev.Info().ID, ev.Engine().Refit(r.Context())))
}

// handleTrajectory handles GET /events/{eventID}/trajectory[?competitor=].
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	const op = "api.trajectory"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	v := ev.Engine().View()
	resp := types.TrajectoryResponse{Event: ev.Info().ID}
	if q := r.URL.Query().Get("competitor"); q != "" {
		name, ok := v.Find(q)
		if !ok {
			s.fail(w, r, WrapKind(op, model.ErrUnknownCompetitor, fmt.Errorf("no competitor matches %q", q)))
			return
		}
		resp.Competitor = name
		resp.Series = v.Series(name)
	} else {
		resp.Snapshots = slices.Collect(v.Trajectory())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePredict handles GET /events/{eventID}/predict?a=&b=.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("both a and b are required")))
		return
	}
	v := ev.Engine().View()
	if name, ok := v.Find(a); ok {
		a = name
	}
	if name, ok := v.Find(b); ok {
		b = name
	}
	p, err := ev.Predictor().Predict(a, b)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
