package api

import (
	"net/http"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// handleExport handles GET /events/{eventID}/snapshot.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap("api.export", err))
		return
	}
	writeJSON(w, http.StatusOK, ev.Engine().Export())
}

// handleImport handles PUT /events/{eventID}/snapshot.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	var snap model.Snapshot
	if err := s.decode(w, r, op, &snap); err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.deps.ImportSnapshot(r.Context(), ev.Info().ID, snap)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, standings(ev.Info().ID, v))
}
