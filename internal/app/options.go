package service

import (
	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/repository"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/bracket"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/predict"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the persistence queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds each event's pool id ledger. Zero keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithStore sets the snapshot store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSolverOptions configures the rating solver of every event.
func WithSolverOptions(opts ...rating.Option) Option {
	return func(s *Service) {
		s.solverOpts = append(s.solverOpts, opts...)
	}
}

// WithSimulatorOptions configures the bracket simulator of every event.
func WithSimulatorOptions(opts ...bracket.Option) Option {
	return func(s *Service) {
		s.simulatorOpts = append(s.simulatorOpts, opts...)
	}
}

// WithPredictorOptions configures the predictor of every event.
func WithPredictorOptions(opts ...predict.Option) Option {
	return func(s *Service) {
		s.predictorOpts = append(s.predictorOpts, opts...)
	}
}
