package bracket

import (
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithLogger sets a custom logger for the simulator.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers sets how many goroutines share the trials of one run.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDefaultTrials sets the trial count used when a caller passes n <= 0.
func WithDefaultTrials(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.defaultTrials = n
		}
	}
}

// WithMaxTrials caps the trial count of a single run.
func WithMaxTrials(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.maxTrials = n
		}
	}
}

// WithSeed fixes the base random seed, making runs reproducible for a given
// worker count.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.seed = seed
		s.fixedSeed = true
	}
}
