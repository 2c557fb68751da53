// Package observation holds the append-only bout log and the per-competitor
// tallies derived from it. It performs no fencing-rule validation.
package observation

import (
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// Store is an ordered log of observations. It is not safe for concurrent
// writers; the engine serialises access.
type Store struct {
	log    []model.Observation
	tally  map[string]*model.Tally
	byName map[string][]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tally:  make(map[string]*model.Tally),
		byName: make(map[string][]int),
	}
}

// Record appends obs and updates both competitors' tallies.
func (s *Store) Record(obs model.Observation) {
	idx := len(s.log)
	s.log = append(s.log, obs)

	s.tallyFor(obs.A).Add(obs.TouchesA, obs.TouchesB)
	s.tallyFor(obs.B).Add(obs.TouchesB, obs.TouchesA)
	s.byName[obs.A] = append(s.byName[obs.A], idx)
	s.byName[obs.B] = append(s.byName[obs.B], idx)
}

func (s *Store) tallyFor(name string) *model.Tally {
	t, ok := s.tally[name]
	if !ok {
		t = &model.Tally{}
		s.tally[name] = t
	}
	return t
}

// All returns the ordered log. The returned slice is capped so appends by the
// caller never alias the store; elements must not be modified.
func (s *Store) All() []model.Observation {
	return s.log[:len(s.log):len(s.log)]
}

// Len returns the number of recorded observations.
func (s *Store) Len() int { return len(s.log) }

// Tally returns name's aggregate record.
func (s *Store) Tally(name string) (model.Tally, bool) {
	t, ok := s.tally[name]
	if !ok {
		return model.Tally{}, false
	}
	return *t, true
}

// Tallies returns a copy of every competitor's record.
func (s *Store) Tallies() map[string]model.Tally {
	out := make(map[string]model.Tally, len(s.tally))
	for name, t := range s.tally {
		out[name] = *t
	}
	return out
}

// Involving returns name's bouts in recording order.
func (s *Store) Involving(name string) []model.Observation {
	idx := s.byName[name]
	out := make([]model.Observation, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.log[i])
	}
	return out
}

// HeadToHead returns every bout between a and b folded from a's side.
func (s *Store) HeadToHead(a, b string) model.HeadToHead {
	return Fold(s.Involving(a), a, b)
}

// Fold filters log to the bouts between a and b and sums them from a's side.
func Fold(log []model.Observation, a, b string) model.HeadToHead {
	h := model.HeadToHead{A: a, B: b, Bouts: []model.Observation{}}
	for _, obs := range log {
		opp, scored, received, ok := obs.From(a)
		if !ok || opp != b {
			continue
		}
		h.Bouts = append(h.Bouts, obs)
		h.TouchesA += scored
		h.TouchesB += received
		switch {
		case scored > received:
			h.WinsA++
		case received > scored:
			h.WinsB++
		}
	}
	return h
}
