package rating

// Option applies a configuration option to the Solver.
type Option func(*Solver)

// WithPriorWeight sets how many pseudo-touches a rating prior is worth.
// Non-positive values are ignored since they would allow zero strengths.
func WithPriorWeight(w float64) Option {
	return func(s *Solver) {
		if w > 0 {
			s.priorWeight = w
		}
	}
}

// WithTolerance sets the convergence threshold on the log-strength change.
func WithTolerance(tol float64) Option {
	return func(s *Solver) {
		if tol > 0 {
			s.tolerance = tol
		}
	}
}

// WithMaxIterations caps the number of MM passes.
func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}
