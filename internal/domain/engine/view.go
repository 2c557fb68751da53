package engine

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/observation"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
)

// upsetRatio is how much stronger the beaten side must be for a bout to count
// as an upset.
const upsetRatio = 1.5

// View is an immutable snapshot of an engine after a refit. All of its slices
// are shared with later views and must be treated as read-only.
type View struct {
	sequence   uint64
	iterations int
	converged  bool
	fieldMean  float64

	standings    []model.Standing
	index        map[string]int
	roster       []model.Entrant
	observations []model.Observation
	trajectory   []model.TrajectorySnapshot
}

// buildView must be called with e.mu held.
func buildView(e *Engine) *View {
	n := len(e.roster)
	v := &View{
		sequence:     e.seq,
		iterations:   e.lastFit.Iterations,
		converged:    e.lastFit.Converged,
		fieldMean:    fieldMean(e.roster, e.strengths, e.store),
		standings:    make([]model.Standing, 0, n),
		index:        make(map[string]int, n),
		roster:       e.roster[:n:n],
		observations: e.store.All(),
		trajectory:   e.trajectory[:len(e.trajectory):len(e.trajectory)],
	}

	var activeSum float64
	for i, en := range e.roster {
		t, has := e.store.Tally(en.Name)
		s := e.strengths[i]
		if has {
			activeSum += s
		}
		v.standings = append(v.standings, model.Standing{
			Name:           en.Name,
			Club:           en.Club,
			Rating:         en.Letter(),
			Prior:          en.Letter().Prior(),
			Strength:       s,
			WinProb:        rating.WinProbability(s, v.fieldMean),
			Wins:           t.Wins,
			Losses:         t.Losses,
			TouchesFor:     t.TouchesFor,
			TouchesAgainst: t.TouchesAgainst,
			Differential:   t.Differential(),
			HasBouts:       has,
		})
	}

	sort.SliceStable(v.standings, func(i, j int) bool {
		a, b := v.standings[i], v.standings[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		return a.Name < b.Name
	})

	rank := 0
	for i := range v.standings {
		st := &v.standings[i]
		if st.HasBouts {
			rank++
			st.Rank = rank
			if activeSum > 0 {
				st.FieldShare = st.Strength / activeSum * 100
			}
		}
		v.index[st.Name] = i
	}
	return v
}

// fieldMean is the strength of an average opponent: the mean over competitors
// who have fenced, or over everyone's prior when nobody has.
func fieldMean(roster []model.Entrant, strengths []float64, store *observation.Store) float64 {
	var sum, all float64
	active := 0
	for i, en := range roster {
		all += strengths[i]
		if _, ok := store.Tally(en.Name); ok {
			sum += strengths[i]
			active++
		}
	}
	switch {
	case active > 0:
		return sum / float64(active)
	case len(roster) > 0:
		return all / float64(len(roster))
	default:
		return 1
	}
}

// Sequence is the index of the last recorded observation.
func (v *View) Sequence() uint64 { return v.sequence }

// Iterations is the number of MM passes of the refit behind this view.
func (v *View) Iterations() int { return v.iterations }

// Converged reports whether that refit met the tolerance.
func (v *View) Converged() bool { return v.converged }

// FieldMean is the strength used for the win-probability-vs-field figure.
func (v *View) FieldMean() float64 { return v.fieldMean }

// Len is the number of known competitors.
func (v *View) Len() int { return len(v.standings) }

// Standings returns a copy of the ranking table.
func (v *View) Standings() []model.Standing {
	return slices.Clone(v.standings)
}

// Standing returns name's row.
func (v *View) Standing(name string) (model.Standing, bool) {
	i, ok := v.index[name]
	if !ok {
		return model.Standing{}, false
	}
	return v.standings[i], true
}

// Strength returns name's current strength or ErrUnknownCompetitor.
func (v *View) Strength(name string) (float64, error) {
	st, ok := v.Standing(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, model.ErrUnknownCompetitor)
	}
	return st.Strength, nil
}

// Roster returns entrants in registration order.
func (v *View) Roster() []model.Entrant {
	return slices.Clone(v.roster)
}

// Observations returns the full log in recording order.
func (v *View) Observations() []model.Observation {
	return v.observations
}

// HeadToHead folds the bouts between a and b from a's side.
func (v *View) HeadToHead(a, b string) model.HeadToHead {
	return observation.Fold(v.observations, a, b)
}

// Bouts returns the log newest first.
func (v *View) Bouts() []model.Observation {
	out := slices.Clone(v.observations)
	slices.Reverse(out)
	return out
}

// Names returns every competitor name in alphabetical order.
func (v *View) Names() []string {
	names := make([]string, 0, len(v.standings))
	for _, st := range v.standings {
		names = append(names, st.Name)
	}
	slices.Sort(names)
	return names
}

// Find resolves a possibly partial, case-insensitive name. An exact match
// wins, then a case-insensitive one, then the alphabetically first name
// containing query.
func (v *View) Find(query string) (string, bool) {
	query = model.NormalizeName(query)
	if query == "" {
		return "", false
	}
	if _, ok := v.index[query]; ok {
		return query, true
	}
	names := v.Names()
	lower := strings.ToLower(query)
	for _, n := range names {
		if strings.ToLower(n) == lower {
			return n, true
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return n, true
		}
	}
	return "", false
}

// Trajectory yields every snapshot in order. The sequence can be ranged over
// any number of times.
func (v *View) Trajectory() iter.Seq[model.TrajectorySnapshot] {
	snaps := v.trajectory
	return func(yield func(model.TrajectorySnapshot) bool) {
		for _, s := range snaps {
			if !yield(s) {
				return
			}
		}
	}
}

// TrajectoryLen is the number of recorded snapshots.
func (v *View) TrajectoryLen() int { return len(v.trajectory) }

// Series returns name's values across the trajectory.
func (v *View) Series(name string) []model.SeriesPoint {
	out := []model.SeriesPoint{}
	for snap := range v.Trajectory() {
		p, ok := snap.Points[name]
		if !ok {
			continue
		}
		out = append(out, model.SeriesPoint{
			Sequence: snap.Sequence,
			Label:    snap.Label,
			Strength: p.Strength,
			WinProb:  p.WinProb,
		})
	}
	return out
}

// Detail returns name's standing with bout history, per-source summaries and
// trajectory series.
func (v *View) Detail(name string) (model.Detail, error) {
	st, ok := v.Standing(name)
	if !ok {
		return model.Detail{}, fmt.Errorf("%q: %w", name, model.ErrUnknownCompetitor)
	}

	d := model.Detail{
		Standing: st,
		History:  []model.BoutRecord{},
		Sources:  []model.SourceSummary{},
		Series:   v.Series(name),
	}
	bySource := map[string]int{}
	for _, obs := range v.observations {
		opp, scored, received, ok := obs.From(name)
		if !ok {
			continue
		}
		oppStrength, _ := v.Strength(opp)
		victory := scored > received
		upset := (victory && oppStrength > st.Strength*upsetRatio) ||
			(!victory && st.Strength > oppStrength*upsetRatio)
		d.History = append(d.History, model.BoutRecord{
			Sequence:         obs.Sequence,
			Opponent:         opp,
			OpponentStrength: oppStrength,
			TouchesFor:       scored,
			TouchesAgainst:   received,
			Victory:          victory,
			Upset:            upset,
			Source:           obs.Source,
		})

		i, seen := bySource[obs.Source]
		if !seen {
			i = len(d.Sources)
			bySource[obs.Source] = i
			d.Sources = append(d.Sources, model.SourceSummary{Source: obs.Source})
		}
		sum := &d.Sources[i]
		sum.Bouts++
		sum.TS += scored
		sum.TR += received
		sum.Indicator = sum.TS - sum.TR
		if victory {
			sum.V++
		}
	}
	return d, nil
}

// Strengths returns name -> strength for every competitor.
func (v *View) Strengths() map[string]float64 {
	out := make(map[string]float64, len(v.standings))
	for _, st := range v.standings {
		out[st.Name] = st.Strength
	}
	return out
}
