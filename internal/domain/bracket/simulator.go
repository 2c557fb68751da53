// Package bracket runs Monte Carlo simulations of a single-elimination
// bracket using the engine's current Bradley-Terry strengths.
package bracket

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// Default run sizes.
const (
	DefaultTrials = 10_000
	MaxTrials     = 1_000_000

	// cancelCheckEvery is how many trials a shard plays between context checks.
	cancelCheckEvery = 256
)

// bye marks an empty slot.
const bye = -1

// State is the lifecycle of a Simulator.
type State int

// Simulator states.
const (
	StateUnset State = iota
	StateSeeded
	StateSimulated
)

func (s State) String() string {
	switch s {
	case StateSeeded:
		return "seeded"
	case StateSimulated:
		return "simulated"
	default:
		return "unset"
	}
}

// Source supplies the view strengths are read from.
type Source interface {
	View() *engine.View
}

// Simulator holds one bracket and the result of its last run.
type Simulator struct {
	source        Source
	logger        logger.Logger
	workers       int
	defaultTrials int
	maxTrials     int
	seed          uint64
	fixedSeed     bool

	mu         sync.RWMutex
	state      State
	generation uint64
	seeds      []string
	slots      []int
	last       *model.SimulationResult
}

// New creates a simulator reading strengths from source.
func New(source Source, opts ...Option) *Simulator {
	s := &Simulator{
		source:        source,
		workers:       runtime.GOMAXPROCS(0),
		defaultTrials: DefaultTrials,
		maxTrials:     MaxTrials,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("bracket")
	}
	return s
}

// State returns the current lifecycle state.
func (s *Simulator) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetBracket fixes the seed order, seed 1 first. Every name must be known to
// the engine and listed once. Any previous result is discarded.
func (s *Simulator) SetBracket(ctx context.Context, seeds []string) error {
	if len(seeds) < 2 {
		return fmt.Errorf("%d seeds given, need at least 2: %w", len(seeds), model.ErrInsufficientBracketSize)
	}
	v := s.source.View()
	names := make([]string, len(seeds))
	seen := make(map[string]int, len(seeds))
	for i, raw := range seeds {
		name := model.NormalizeName(raw)
		if _, ok := v.Standing(name); !ok {
			return fmt.Errorf("seed %d %q: %w", i+1, name, model.ErrUnknownCompetitor)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("%q seeded at %d and %d: %w", name, prev+1, i+1, model.ErrInvalidObservation)
		}
		seen[name] = i
		names[i] = name
	}

	size := Size(len(names))
	slots := make([]int, 0, size)
	for _, p := range Positions(size) {
		for _, seed := range p {
			if seed <= len(names) {
				slots = append(slots, seed-1)
			} else {
				slots = append(slots, bye)
			}
		}
	}

	s.mu.Lock()
	s.seeds = names
	s.slots = slots
	s.last = nil
	s.state = StateSeeded
	s.generation++
	s.mu.Unlock()

	s.logger.Info(ctx, "bracket set", logger.Int("entrants", len(names)), logger.Int("size", size))
	return nil
}

// Bracket returns the first-round matchups in draw order.
func (s *Simulator) Bracket() ([]model.Matchup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateUnset {
		return nil, model.ErrBracketNotSet
	}
	out := make([]model.Matchup, 0, len(s.slots)/2)
	for i := 0; i < len(s.slots); i += 2 {
		m := model.Matchup{}
		if top := s.slots[i]; top != bye {
			m.Top, m.TopSeed = s.seeds[top], top+1
		}
		if bottom := s.slots[i+1]; bottom != bye {
			m.Bottom, m.BottomSeed = s.seeds[bottom], bottom+1
		}
		out = append(out, m)
	}
	return out, nil
}

// Seeds returns the seed order.
func (s *Simulator) Seeds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.seeds...)
}

// Last returns the result of the most recent completed run for the current
// bracket.
func (s *Simulator) Last() (model.SimulationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return model.SimulationResult{}, false
	}
	return *s.last, true
}

// Simulate plays n independent trials of the bracket (the default when
// n <= 0). Strengths are read once at the start. Trials are sharded across
// workers, each with its own random stream, and tallies are merged at the
// end. Cancelling ctx abandons the run and leaves the simulator unchanged.
func (s *Simulator) Simulate(ctx context.Context, n int) (model.SimulationResult, error) {
	s.mu.RLock()
	if s.state == StateUnset {
		s.mu.RUnlock()
		return model.SimulationResult{}, model.ErrBracketNotSet
	}
	seeds, slots, gen := s.seeds, s.slots, s.generation
	s.mu.RUnlock()

	switch {
	case n <= 0:
		n = s.defaultTrials
	case n > s.maxTrials:
		n = s.maxTrials
	}

	v := s.source.View()
	strengths := make([]float64, len(seeds))
	for i, name := range seeds {
		st, err := v.Strength(name)
		if err != nil {
			return model.SimulationResult{}, fmt.Errorf("simulate: %w", err)
		}
		strengths[i] = st
	}

	start := time.Now()
	rounds := len(RoundLabels(len(slots))) - 1
	counts, err := s.run(ctx, n, slots, strengths, rounds)
	if err != nil {
		s.logger.Warn(ctx, "simulation abandoned", logger.Error(err), logger.Int("trials", n))
		return model.SimulationResult{}, err
	}
	res := tabulate(n, seeds, len(slots), counts)
	elapsed := time.Since(start)
	metrics.RecordSimulation(n, elapsed)

	s.mu.Lock()
	if s.generation == gen {
		s.last = &res
		s.state = StateSimulated
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "simulation complete",
		logger.Int("trials", n),
		logger.Int("entrants", len(seeds)),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

// run fans trials out to shards and sums their tallies. counts[i][r] is the
// number of trials in which seed i reached round r; index rounds is the title.
func (s *Simulator) run(ctx context.Context, n int, slots []int, strengths []float64, rounds int) ([][]int, error) {
	workers := max(1, min(s.workers, n))
	base := s.seed
	if !s.fixedSeed {
		base = rand.Uint64()
	}

	shards := make([][][]int, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		trials := n / workers
		if w < n%workers {
			trials++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(base, uint64(w)))
			tally, err := playShard(gctx, rng, trials, slots, strengths, rounds)
			if err != nil {
				return err
			}
			shards[w] = tally
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newTally(len(strengths), rounds)
	for _, t := range shards {
		for i := range t {
			for r := range t[i] {
				total[i][r] += t[i][r]
			}
		}
	}
	return total, nil
}

func newTally(entrants, rounds int) [][]int {
	t := make([][]int, entrants)
	for i := range t {
		t[i] = make([]int, rounds+1)
	}
	return t
}

func playShard(ctx context.Context, rng *rand.Rand, trials int, slots []int, strengths []float64, rounds int) ([][]int, error) {
	tally := newTally(len(strengths), rounds)
	current := make([]int, len(slots))
	for t := range trials {
		if t%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		current = current[:len(slots)]
		copy(current, slots)
		for _, i := range current {
			if i != bye {
				tally[i][0]++
			}
		}
		for r := 1; len(current) > 1; r++ {
			next := current[:0]
			for k := 0; k < len(current); k += 2 {
				w := playBout(rng, current[k], current[k+1], strengths)
				if w != bye {
					tally[w][r]++
				}
				next = append(next, w)
			}
			current = next
		}
	}
	return tally, nil
}

// playBout samples the winner of a vs b. A bye always loses.
func playBout(rng *rand.Rand, a, b int, strengths []float64) int {
	switch {
	case a == bye:
		return b
	case b == bye:
		return a
	}
	if rng.Float64() < rating.WinProbability(strengths[a], strengths[b]) {
		return a
	}
	return b
}

func tabulate(trials int, seeds []string, size int, counts [][]int) model.SimulationResult {
	labels := RoundLabels(size)
	res := model.SimulationResult{
		Trials:      trials,
		Size:        size,
		Rounds:      labels,
		Competitors: make([]model.CompetitorOdds, len(seeds)),
	}
	for i, name := range seeds {
		odds := make(map[string]float64, len(labels))
		for r, label := range labels {
			odds[label] = float64(counts[i][r]) / float64(trials) * 100
		}
		res.Competitors[i] = model.CompetitorOdds{Seed: i + 1, Name: name, Rounds: odds}
	}
	return res
}
