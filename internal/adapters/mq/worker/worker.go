// Package worker persists snapshot records read off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/mq/queue"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultWriteTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// Saver stores a record unless a newer one for the same event is already
// stored. It reports whether the record was written.
type Saver interface {
	SaveIfNewer(ctx context.Context, rec Event) (bool, error)
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes records until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for snapshot records.
type InMemoryWorker struct {
	queue        Queue
	saver        Saver
	name         string
	writeTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        q,
		saver:        saver,
		name:         "worker",
		writeTimeout: defaultWriteTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Get().Named("persist"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			if err := w.process(ctx, rec); err != nil {
				w.logger.Error(ctx, "snapshot write failed", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, rec Event) error { //nolint:gocritic // hugeParam: records are passed by value over the channel
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()

	written, err := w.saver.SaveIfNewer(wctx, rec)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		metrics.RecordSnapshotWrite("error", elapsed)
		return fmt.Errorf("event %s at sequence %d: %w", rec.Event.ID, rec.Sequence, err)
	case !written:
		metrics.RecordSnapshotWrite("stale", elapsed)
		w.logger.Debug(ctx, "stale snapshot skipped",
			logger.String("event", rec.Event.ID),
			logger.Uint64("sequence", rec.Sequence),
		)
	default:
		metrics.RecordSnapshotWrite("written", elapsed)
		w.logger.Debug(ctx, "snapshot written",
			logger.String("event", rec.Event.ID),
			logger.Uint64("sequence", rec.Sequence),
			logger.Duration("elapsed", elapsed),
		)
	}
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	started atomic.Bool
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below one uses the default.
func NewPool(workerCount int, q Queue, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("persist-pool"),
	}
	for i := range workerCount {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, saver, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdatePersistWorkers(len(p.workers))
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx or the pool timeout expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
			if err := w.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	metrics.UpdatePersistWorkers(0)
	return errors.Join(errs...)
}
