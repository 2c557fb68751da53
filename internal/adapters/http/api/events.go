package api

import (
	"net/http"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

// handleCreateEvent handles POST /events.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req types.CreateEventRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := types.Validate(req); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	info, err := s.deps.CreateEvent(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/events/"+info.ID)
	writeJSON(w, http.StatusCreated, types.EventSummary{EventInfo: info})
}

// handleListEvents handles GET /events.
func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Events())
}

// handleGetEvent handles GET /events/{eventID}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap("api.get_event", err))
		return
	}
	writeJSON(w, http.StatusOK, ev.Summary())
}

// handleDeleteEvent handles DELETE /events/{eventID}.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap("api.delete_event", err))
		return
	}
	if err := s.deps.DeleteEvent(r.Context(), ev.Info().ID); err != nil {
		s.fail(w, r, Wrap("api.delete_event", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
