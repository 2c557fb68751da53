package api

import (
	"net/http"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

// handleIngestPool handles POST /events/{eventID}/pools.
func (s *Server) handleIngestPool(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_pool"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	var sheet ingest.PoolSheet
	if err := s.decode(w, r, op, &sheet); err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := ev.Ingest().IngestPool(r.Context(), sheet)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// handleAddBout handles POST /events/{eventID}/bouts.
func (s *Server) handleAddBout(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_bout"
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	var bout ingest.Bout
	if err := s.decode(w, r, op, &bout); err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := ev.Ingest().AddBout(r.Context(), bout)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// handleListBouts handles GET /events/{eventID}/bouts.
func (s *Server) handleListBouts(w http.ResponseWriter, r *http.Request) {
	ev, err := s.event(r)
	if err != nil {
		s.fail(w, r, Wrap("api.bouts", err))
		return
	}
	writeJSON(w, http.StatusOK, types.BoutsResponse{Event: ev.Info().ID, Bouts: ev.Engine().View().Bouts()})
}
