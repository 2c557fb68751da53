// Package engine owns the live strength state of one event.
//
// An Engine is a single-writer component: every mutation (registration,
// ingestion, refit, import) runs under one mutex and ends by publishing a new
// immutable View. Readers only ever see a fully refit View, so queries never
// observe strengths mid-update and never wait on the write lock.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/observation"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// RefitHook is called with the freshly published view after new evidence is
// recorded or the roster grows. Hooks run outside the write lock.
type RefitHook func(ctx context.Context, v *View)

// Batch is a group of observations recorded and refit together.
type Batch struct {
	// Label names the trajectory snapshot; "Bout <seq>" when empty.
	Label string
	// Entrants are registered before the observations are recorded.
	Entrants     []model.Entrant
	Observations []model.Observation
}

// Engine fits and serves strengths for one event.
type Engine struct {
	mu sync.Mutex

	name       string
	logger     logger.Logger
	solverOpts []rating.Option
	solver     *rating.Solver
	hooks      []RefitHook

	roster     []model.Entrant
	rosterIdx  map[string]int
	store      *observation.Store
	strengths  []float64
	seq        uint64
	lastSnap   uint64
	trajectory []model.TrajectorySnapshot
	lastFit    rating.Fit

	view atomic.Pointer[View]
}

// New creates an engine with no competitors.
func New(opts ...Option) *Engine {
	e := &Engine{
		name:      "engine",
		rosterIdx: make(map[string]int),
		store:     observation.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	e.logger = e.logger.With(logger.String("event", e.name))
	e.solver = rating.New(e.solverOpts...)
	e.lastFit = rating.Fit{Converged: true}
	e.publish()
	return e
}

// View returns the latest published state.
func (e *Engine) View() *View {
	return e.view.Load()
}

// PriorWeight returns the solver's prior weight.
func (e *Engine) PriorWeight() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.solver.PriorWeight()
}

// Register adds entrants to the roster. Names already known are left as they
// are; their prior never changes once set.
func (e *Engine) Register(ctx context.Context, entrants ...model.Entrant) error {
	for _, en := range entrants {
		if model.NormalizeName(en.Name) == "" {
			return fmt.Errorf("register: empty name: %w", model.ErrInvalidObservation)
		}
	}

	e.mu.Lock()
	added := 0
	for _, en := range entrants {
		if e.register(en) {
			added++
		}
	}
	if added == 0 {
		e.mu.Unlock()
		return nil
	}
	v := e.publish()
	hooks := e.hooks
	e.mu.Unlock()

	e.logger.Debug(ctx, "competitors registered", logger.Int("added", added), logger.Int("roster", len(v.standings)))
	runHooks(ctx, hooks, v)
	return nil
}

// register must be called with mu held.
func (e *Engine) register(en model.Entrant) bool {
	en.Name = model.NormalizeName(en.Name)
	if _, ok := e.rosterIdx[en.Name]; ok {
		return false
	}
	if en.Rating == "" {
		en.Rating = string(model.RatingU)
	}
	e.rosterIdx[en.Name] = len(e.roster)
	e.roster = append(e.roster, en)
	e.strengths = append(e.strengths, en.Letter().Prior())
	return true
}

// Apply records a batch and refits. It is the only path by which evidence
// enters the engine. Either the whole batch is recorded or nothing is. A
// batch without observations only registers its entrants: no refit runs and
// no snapshot is taken.
func (e *Engine) Apply(ctx context.Context, b Batch) (*View, error) {
	if err := validateBatch(b); err != nil {
		return nil, err
	}

	e.mu.Lock()
	added := 0
	for _, en := range b.Entrants {
		if e.register(en) {
			added++
		}
	}
	if len(b.Observations) == 0 {
		v := e.view.Load()
		var hooks []RefitHook
		if added > 0 {
			v = e.publish()
			hooks = e.hooks
		}
		e.mu.Unlock()
		runHooks(ctx, hooks, v)
		return v, nil
	}
	for _, obs := range b.Observations {
		obs.A = model.NormalizeName(obs.A)
		obs.B = model.NormalizeName(obs.B)
		e.register(model.Entrant{Name: obs.A})
		e.register(model.Entrant{Name: obs.B})
		if obs.Source == "" {
			obs.Source = model.SourceManual
		}
		e.seq++
		obs.Sequence = e.seq
		e.store.Record(obs)
		metrics.RecordObservation(sourceKind(obs.Source))
	}
	label := b.Label
	if label == "" {
		label = fmt.Sprintf("Bout %d", e.seq)
	}
	e.refit(ctx)
	e.snapshot(label)
	v := e.publish()
	hooks := e.hooks
	e.mu.Unlock()

	e.logger.Info(ctx, "batch applied",
		logger.String("label", label),
		logger.Int("observations", len(b.Observations)),
		logger.Uint64("sequence", v.Sequence()),
	)
	runHooks(ctx, hooks, v)
	return v, nil
}

// Refit recomputes strengths from the full history. On an empty history it
// does nothing. A trajectory snapshot is appended only if evidence was
// recorded since the last one, so repeated calls are idempotent.
func (e *Engine) Refit(ctx context.Context) *View {
	e.mu.Lock()
	if e.store.Len() == 0 {
		v := e.view.Load()
		e.mu.Unlock()
		return v
	}
	e.refit(ctx)
	advanced := e.seq > e.lastSnap
	if advanced {
		e.snapshot(fmt.Sprintf("Bout %d", e.seq))
	}
	v := e.publish()
	hooks := e.hooks
	e.mu.Unlock()

	if advanced {
		runHooks(ctx, hooks, v)
	}
	return v
}

// refit must be called with mu held.
func (e *Engine) refit(ctx context.Context) {
	if e.store.Len() == 0 {
		for i, en := range e.roster {
			e.strengths[i] = en.Letter().Prior()
		}
		e.lastFit = rating.Fit{Converged: true}
		return
	}

	start := time.Now()
	priors := make([]float64, len(e.roster))
	for i, en := range e.roster {
		priors[i] = en.Letter().Prior()
	}
	all := e.store.All()
	pairings := make([]rating.Pairing, 0, len(all))
	for _, obs := range all {
		pairings = append(pairings, rating.Pairing{
			A:     e.rosterIdx[obs.A],
			B:     e.rosterIdx[obs.B],
			WinsA: float64(obs.TouchesA),
			WinsB: float64(obs.TouchesB),
		})
	}

	fit := e.solver.Fit(rating.Problem{Priors: priors, Pairings: pairings})
	e.strengths = fit.Strengths
	e.lastFit = fit
	elapsed := time.Since(start)
	metrics.RecordRefit(elapsed, fit.Iterations, fit.Converged)

	if !fit.Converged {
		e.logger.Warn(ctx, "refit stopped at iteration cap",
			logger.Error(model.ErrConvergenceNotReached),
			logger.Int("iterations", fit.Iterations),
			logger.Float64("max_change", fit.MaxChange),
		)
		return
	}
	e.logger.Debug(ctx, "refit converged",
		logger.Int("iterations", fit.Iterations),
		logger.Duration("elapsed", elapsed),
	)
}

// snapshot must be called with mu held, after refit. Only competitors who
// have fenced get a point.
func (e *Engine) snapshot(label string) {
	mean := fieldMean(e.roster, e.strengths, e.store)
	points := make(map[string]model.TrajectoryPoint, len(e.roster))
	for i, en := range e.roster {
		if _, ok := e.store.Tally(en.Name); !ok {
			continue
		}
		s := e.strengths[i]
		points[en.Name] = model.TrajectoryPoint{Strength: s, WinProb: rating.WinProbability(s, mean)}
	}
	e.trajectory = append(e.trajectory, model.TrajectorySnapshot{
		Sequence: e.seq,
		Label:    label,
		Points:   points,
	})
	e.lastSnap = e.seq
}

// publish builds and stores a new View. It must be called with mu held.
func (e *Engine) publish() *View {
	v := buildView(e)
	e.view.Store(v)
	return v
}

func runHooks(ctx context.Context, hooks []RefitHook, v *View) {
	for _, h := range hooks {
		h(ctx, v)
	}
}

func validateBatch(b Batch) error {
	for _, en := range b.Entrants {
		if model.NormalizeName(en.Name) == "" {
			return fmt.Errorf("entrant with empty name: %w", model.ErrInvalidObservation)
		}
	}
	for i, obs := range b.Observations {
		a, bn := model.NormalizeName(obs.A), model.NormalizeName(obs.B)
		switch {
		case a == "" || bn == "":
			return fmt.Errorf("observation %d: empty competitor name: %w", i, model.ErrInvalidObservation)
		case a == bn:
			return fmt.Errorf("observation %d: %q cannot fence themselves: %w", i, a, model.ErrInvalidObservation)
		case obs.TouchesA < 0 || obs.TouchesB < 0:
			return fmt.Errorf("observation %d: negative touches: %w", i, model.ErrInvalidObservation)
		}
	}
	return nil
}

// sourceKind folds pool identifiers into one metric label.
func sourceKind(source string) string {
	if source == model.SourceManual {
		return model.SourceManual
	}
	return "pool"
}
