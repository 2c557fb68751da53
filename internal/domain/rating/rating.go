// Package rating implements the touch-level Bradley-Terry model and its
// minorization-maximization solver.
//
// Every bout is decomposed into touches: a 5-3 result is five wins for one
// side and three for the other. Rating priors enter the objective as
// pseudo-touches against a virtual opponent of strength 1, which keeps an
// undefeated competitor with little data from drifting to infinity.
package rating

import (
	"math"
)

// Defaults for the solver.
const (
	DefaultPriorWeight   = 0.3
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 200
)

// Pairing is the aggregated touch count between competitors A and B, given
// as indexes into Problem.Priors.
type Pairing struct {
	A, B         int
	WinsA, WinsB float64
}

// Problem is the input to a fit.
type Problem struct {
	Priors   []float64
	Pairings []Pairing
}

// Fit is the result of a fit. Strengths is indexed like Problem.Priors.
type Fit struct {
	Strengths  []float64
	Iterations int
	Converged  bool
	MaxChange  float64
}

// Solver runs the MM iteration. The zero value is not usable; use New.
type Solver struct {
	priorWeight   float64
	tolerance     float64
	maxIterations int
}

// New creates a solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		priorWeight:   DefaultPriorWeight,
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriorWeight returns the configured prior weight.
func (s *Solver) PriorWeight() float64 { return s.priorWeight }

type edge struct {
	other   int
	touches float64
}

// Fit computes strengths for p. The iteration always starts from the priors,
// so equal problems give bit-identical results. Competitors without touches
// keep their prior.
//
// Update, for each i simultaneously:
//
//	s_i = (W_i + w*prior_i) / (Σ_j n_ij/(s_i+s_j) + w)
//
// Convergence is reached when max |ln s_new - ln s_old| < tolerance.
func (s *Solver) Fit(p Problem) Fit {
	n := len(p.Priors)
	cur := make([]float64, n)
	for i, prior := range p.Priors {
		cur[i] = positive(prior)
	}
	if n == 0 || len(p.Pairings) == 0 {
		return Fit{Strengths: cur, Converged: true}
	}

	wins := make([]float64, n)
	totals := make(map[[2]int]float64, len(p.Pairings))
	for _, pr := range p.Pairings {
		if pr.A == pr.B || pr.A < 0 || pr.B < 0 || pr.A >= n || pr.B >= n {
			continue
		}
		wins[pr.A] += pr.WinsA
		wins[pr.B] += pr.WinsB
		key := [2]int{min(pr.A, pr.B), max(pr.A, pr.B)}
		totals[key] += pr.WinsA + pr.WinsB
	}
	adj := make([][]edge, n)
	for key, t := range totals {
		if t <= 0 {
			continue
		}
		adj[key[0]] = append(adj[key[0]], edge{other: key[1], touches: t})
		adj[key[1]] = append(adj[key[1]], edge{other: key[0], touches: t})
	}

	next := make([]float64, n)
	fit := Fit{}
	for fit.Iterations < s.maxIterations {
		fit.Iterations++
		for i := range cur {
			if len(adj[i]) == 0 {
				next[i] = cur[i]
				continue
			}
			num := wins[i] + s.priorWeight*positive(p.Priors[i])
			den := s.priorWeight
			for _, e := range adj[i] {
				den += e.touches / (cur[i] + cur[e.other])
			}
			if den > 0 && num > 0 {
				next[i] = num / den
			} else {
				next[i] = cur[i]
			}
		}

		fit.MaxChange = 0
		for i := range cur {
			if d := math.Abs(math.Log(next[i]) - math.Log(cur[i])); d > fit.MaxChange {
				fit.MaxChange = d
			}
		}
		cur, next = next, cur
		if fit.MaxChange < s.tolerance {
			fit.Converged = true
			break
		}
	}
	fit.Strengths = cur
	return fit
}

// WinProbability is the chance that a competitor of strength si wins a
// single touch, or a bout, against one of strength sj.
func WinProbability(si, sj float64) float64 {
	if si+sj <= 0 {
		return 0.5
	}
	return si / (si + sj)
}

func positive(v float64) float64 {
	if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v
	}
	return 1
}
