package engine

import (
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithName labels log lines with the event the engine belongs to.
func WithName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.name = name
		}
	}
}

// WithSolverOptions configures the rating solver.
func WithSolverOptions(opts ...rating.Option) Option {
	return func(e *Engine) {
		e.solverOpts = append(e.solverOpts, opts...)
	}
}

// WithRefitHook registers fn to run after every published refit.
func WithRefitHook(fn RefitHook) Option {
	return func(e *Engine) {
		if fn != nil {
			e.hooks = append(e.hooks, fn)
		}
	}
}
