package api

import (
	"fmt"
	"net/http"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

// handleRegister handles POST /events/{eventID}/competitors.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	var req types.RegisterRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := types.Validate(req); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if err := ev.Engine().Register(r.Context(), req.Competitors...); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ev.Summary())
}

// handleListCompetitors handles GET /events/{eventID}/competitors. With
// ?q= it resolves a partial name instead.
func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	const op = "api.competitors"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	v := ev.Engine().View()
	if q := r.URL.Query().Get("q"); q != "" {
		name, ok := v.Find(q)
		if !ok {
			s.fail(w, r, WrapKind(op, model.ErrUnknownCompetitor, fmt.Errorf("no competitor matches %q", q)))
			return
		}
		writeJSON(w, http.StatusOK, []string{name})
		return
	}
	writeJSON(w, http.StatusOK, v.Names())
}

// handleCompetitor handles GET /events/{eventID}/competitors/{name}.
func (s *Server) handleCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.competitor"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	v := ev.Engine().View()
	query := pathParam(r, "name")
	name, ok := v.Find(query)
	if !ok {
		s.fail(w, r, WrapKind(op, model.ErrUnknownCompetitor, fmt.Errorf("no competitor matches %q", query)))
		return
	}
	detail, err := v.Detail(name)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
