// Package service hosts the rating engines of every open event and the
// components around them: ingestion, prediction, bracket simulation, live
// streaming and snapshot persistence. It implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/mq/queue"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/mq/worker"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/adapters/repository"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/bracket"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/dedupe"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/predict"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 2
	defaultQueueSize   = 1024
	poolLabelPrefix    = "Pool "
)

// Service owns every event hosted by the process.
type Service struct {
	mu     sync.RWMutex
	events map[string]*Event

	// Persistence pipeline. writeMu orders snapshot writes against event
	// deletion.
	writeMu    sync.RWMutex
	store      repository.Store
	queue      *queue.InMemoryQueue
	workerPool *worker.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	solverOpts    []rating.Option
	simulatorOpts []bracket.Option
	predictorOpts []predict.Option

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		events:      make(map[string]*Event),
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start starts the persistence workers and restores every stored event.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info(ctx, "starting rating service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.queue, liveSaver{s})
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)
	s.started = true
	s.mu.Unlock()

	restored, err := s.restore(ctx)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("restored_events", restored),
	)
	return nil
}

// restore rebuilds events from the store. An event that fails to load is
// logged and skipped.
func (s *Service) restore(ctx context.Context) (int, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored events: %w", err)
	}
	restored := 0
	for _, info := range infos {
		rec, err := s.store.Load(ctx, info.ID)
		if err != nil {
			s.logger.Error(ctx, "stored event unreadable", logger.String("event", info.ID), logger.Error(err))
			continue
		}
		ev := s.newEvent(rec.Event)
		if _, err := ev.engine.Import(ctx, rec.Snapshot); err != nil {
			s.logger.Error(ctx, "stored event rejected", logger.String("event", info.ID), logger.Error(err))
			continue
		}
		seedPools(ctx, ev)
		s.mu.Lock()
		s.events[ev.info.ID] = ev
		s.mu.Unlock()
		restored++
	}
	s.updateGauges()
	return restored, nil
}

// Stop drains the persistence queue, writes a final snapshot of every event
// and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	events := make([]*Event, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping rating service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()

	for _, ev := range events {
		ev.hub.close()
		if _, err := s.save(ctx, s.record(ev)); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", ev.info.ID, err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info(ctx, "rating service stopped", logger.Int("flushed_events", len(events)))
	return errors.Join(errs...)
}

// newEvent builds an event and wires its refit hook.
func (s *Service) newEvent(info model.EventInfo) *Event {
	ev := &Event{info: info, hub: newHub()}
	ev.engine = engine.New(
		engine.WithName(info.ID),
		engine.WithSolverOptions(s.solverOpts...),
		engine.WithRefitHook(func(ctx context.Context, v *engine.View) {
			s.onRefit(ctx, ev, v)
		}),
	)
	var dopts []dedupe.Option
	if s.dedupeSize > 0 {
		dopts = append(dopts, dedupe.WithMaxSize(s.dedupeSize))
	}
	ev.ingest = ingest.New(ev.engine, ingest.WithDeduper(dedupe.NewInMemoryDeduper(dopts...)))
	ev.predictor = predict.New(ev.engine, s.predictorOpts...)
	ev.bracket = bracket.New(ev.engine, s.simulatorOpts...)
	return ev
}

// onRefit streams the new view and queues a snapshot for persistence.
func (s *Service) onRefit(ctx context.Context, ev *Event, v *engine.View) {
	if ev.closed.Load() {
		return
	}
	ev.hub.publish(ev.refitMessage(v))
	s.persist(ctx, ev)
	s.updateGauges()
}

func (s *Service) record(ev *Event) model.SnapshotRecord {
	snap := ev.engine.Export()
	return model.SnapshotRecord{
		Event:    ev.info,
		Sequence: snap.Sequence,
		SavedAt:  time.Now().UTC(),
		Snapshot: snap,
	}
}

// persist queues a snapshot of ev. A full queue drops it; the next refit or
// the flush on Stop writes a newer one.
func (s *Service) persist(ctx context.Context, ev *Event) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return
	}
	if !q.Enqueue(context.WithoutCancel(ctx), s.record(ev)) {
		s.logger.Warn(ctx, "snapshot dropped, persistence queue full", logger.String("event", ev.info.ID))
	}
}

// liveSaver is the worker pool's view of the store. Records of deleted events
// are discarded.
type liveSaver struct{ s *Service }

func (l liveSaver) SaveIfNewer(ctx context.Context, rec model.SnapshotRecord) (bool, error) { //nolint:gocritic // hugeParam: matches worker.Saver
	return l.s.save(ctx, rec)
}

// save writes rec if its event is still open. DeleteEvent holds writeMu for
// writing while it removes the stored record, so a save either finishes
// before the delete or sees the event gone.
func (s *Service) save(ctx context.Context, rec model.SnapshotRecord) (bool, error) { //nolint:gocritic // hugeParam: records are passed by value
	s.writeMu.RLock()
	defer s.writeMu.RUnlock()

	s.mu.RLock()
	ev, ok := s.events[rec.Event.ID]
	s.mu.RUnlock()
	if !ok || ev.closed.Load() {
		s.logger.Debug(ctx, "snapshot discarded, event closed",
			logger.String("event", rec.Event.ID),
			logger.Uint64("sequence", rec.Sequence),
		)
		return false, nil
	}
	return s.store.SaveIfNewer(ctx, rec)
}

// seedPools rebuilds the pool id ledger from the trajectory labels.
func seedPools(ctx context.Context, ev *Event) {
	ledger := ev.ingest.Pools()
	ledger.Reset(ctx)
	for snap := range ev.engine.View().Trajectory() {
		if id, ok := strings.CutPrefix(snap.Label, poolLabelPrefix); ok {
			ledger.SeenAndRecord(ctx, id)
		}
	}
}

// CreateEvent opens a new, empty event.
func (s *Service) CreateEvent(ctx context.Context, name string) (model.EventInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.EventInfo{}, ErrInvalidEventName
	}
	info := model.EventInfo{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	ev := s.newEvent(info)

	s.mu.Lock()
	s.events[info.ID] = ev
	s.mu.Unlock()

	s.persist(ctx, ev)
	s.updateGauges()
	s.logger.Info(ctx, "event created", logger.String("event", info.ID), logger.String("name", name))
	return info, nil
}

// Event returns an open event.
func (s *Service) Event(id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, model.ErrEventNotFound)
	}
	return ev, nil
}

// Events lists every open event, oldest first.
func (s *Service) Events() []types.EventSummary {
	s.mu.RLock()
	out := make([]types.EventSummary, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Summary())
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b types.EventSummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// DeleteEvent closes an event and removes its stored snapshot. Records of
// the event still queued for persistence are discarded.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	s.writeMu.Lock()
	s.mu.Lock()
	ev, ok := s.events[id]
	delete(s.events, id)
	s.mu.Unlock()
	if !ok {
		s.writeMu.Unlock()
		return fmt.Errorf("%q: %w", id, model.ErrEventNotFound)
	}
	ev.closed.Store(true)
	err := s.store.Delete(ctx, id)
	s.writeMu.Unlock()

	ev.hub.close()
	if err != nil {
		return err
	}
	s.updateGauges()
	s.logger.Info(ctx, "event deleted", logger.String("event", id))
	return nil
}

// ImportSnapshot replaces an event's state with snap.
func (s *Service) ImportSnapshot(ctx context.Context, id string, snap model.Snapshot) (*engine.View, error) {
	ev, err := s.Event(id)
	if err != nil {
		return nil, err
	}
	v, err := ev.engine.Import(ctx, snap)
	if err != nil {
		return nil, err
	}
	seedPools(ctx, ev)
	s.onRefit(ctx, ev, v)
	return v, nil
}

// Subscribe registers a live subscriber for an event's refits. The channel
// is closed when cancel is called or the event is closed.
func (s *Service) Subscribe(id string) (<-chan types.StreamMessage, func(), error) {
	ev, err := s.Event(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ev.hub.subscribe()
	return ch, cancel, nil
}

func (s *Service) updateGauges() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	competitors := 0
	for _, ev := range s.events {
		competitors += ev.engine.View().Len()
	}
	metrics.UpdateEvents(len(s.events))
	metrics.UpdateCompetitors(competitors)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"events":      len(s.events),
	}

	competitors, observations, subscribers := 0, 0, 0
	for _, ev := range s.events {
		v := ev.engine.View()
		competitors += v.Len()
		observations += len(v.Observations())
		subscribers += ev.hub.count()
	}
	stats["competitors"] = competitors
	stats["observations"] = observations
	stats["streamClients"] = subscribers

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedEvents"] = n
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}
