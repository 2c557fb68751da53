package api

import (
	"fmt"
	"net/http"
	"strconv"

	service "github.com/nourdesoukizz/Cozmx-fencing/internal/app"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

func bracketResponse(ev *service.Event) (types.BracketResponse, error) {
	sim := ev.Bracket()
	matchups, err := sim.Bracket()
	if err != nil {
		return types.BracketResponse{}, err
	}
	return types.BracketResponse{
		Event:    ev.Info().ID,
		State:    sim.State().String(),
		Seeds:    sim.Seeds(),
		Matchups: matchups,
	}, nil
}

// handleSetBracket handles PUT /events/{eventID}/bracket.
func (s *Server) handleSetBracket(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_bracket"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	var req types.BracketRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := types.Validate(req); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	v := ev.Engine().View()
	seeds := make([]string, len(req.Seeds))
	for i, q := range req.Seeds {
		seeds[i] = q
		if name, ok := v.Find(q); ok {
			seeds[i] = name
		}
	}
	if err := ev.Bracket().SetBracket(r.Context(), seeds); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	resp, err := bracketResponse(ev)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetBracket handles GET /events/{eventID}/bracket.
func (s *Server) handleGetBracket(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_bracket"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	resp, err := bracketResponse(ev)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSimulate handles POST /events/{eventID}/simulate[?n=].
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("n must be an integer: %q", raw)))
			return
		}
	}
	res, err := ev.Bracket().Simulate(r.Context(), n)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleLastSimulation handles GET /events/{eventID}/simulate.
func (s *Server) handleLastSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "api.last_simulation"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	res, ok := ev.Bracket().Last()
	if !ok {
		s.fail(w, r, NewKind(op, ErrNoResult))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
