package replay

import (
	"context"
	"fmt"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Result is everything a replay read back from the server.
type Result struct {
	Event       types.EventSummary
	Pools       []ingest.PoolReport
	Bouts       int
	Standings   types.StandingsResponse
	Predictions []model.Prediction
	Bracket     *types.BracketResponse
	Simulation  *model.SimulationResult
}

// Runner replays fixtures through a Client.
type Runner struct {
	client *Client
	logger logger.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner returns a runner sending requests through c.
func NewRunner(c *Client, opts ...RunnerOption) *Runner {
	r := &Runner{client: c}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("replay")
	}
	return r
}

// Run replays f into a new event. Pools go first in file order, then bouts.
// The first rejected request stops the replay; the partial result is
// returned with the error.
func (r *Runner) Run(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{}

	ev, err := r.client.CreateEvent(ctx, f.Event)
	if err != nil {
		return res, fmt.Errorf("create event: %w", err)
	}
	res.Event = ev
	r.logger.Info(ctx, "replaying fixture", logger.String("event", ev.ID), logger.String("name", ev.Name))

	if len(f.Competitors) > 0 {
		if _, err := r.client.Register(ctx, ev.ID, f.Competitors); err != nil {
			return res, fmt.Errorf("register: %w", err)
		}
	}

	for i := range f.Pools {
		report, err := r.client.IngestPool(ctx, ev.ID, f.Pools[i])
		if err != nil {
			return res, fmt.Errorf("pool %s: %w", f.Pools[i].PoolID, err)
		}
		for _, w := range report.Warnings {
			r.logger.Warn(ctx, "pool warning", logger.String("pool", report.PoolID), logger.String("warning", w))
		}
		res.Pools = append(res.Pools, report)
	}

	for i, b := range f.Bouts {
		if _, err := r.client.AddBout(ctx, ev.ID, b); err != nil {
			return res, fmt.Errorf("bout %d (%s v %s): %w", i+1, b.A, b.B, err)
		}
		res.Bouts++
	}

	if res.Standings, err = r.client.Standings(ctx, ev.ID); err != nil {
		return res, fmt.Errorf("standings: %w", err)
	}

	for _, p := range f.Predictions {
		pred, err := r.client.Predict(ctx, ev.ID, p.A, p.B)
		if err != nil {
			return res, fmt.Errorf("predict %s v %s: %w", p.A, p.B, err)
		}
		res.Predictions = append(res.Predictions, pred)
	}

	if len(f.Bracket) > 0 {
		br, err := r.client.SetBracket(ctx, ev.ID, f.Bracket)
		if err != nil {
			return res, fmt.Errorf("bracket: %w", err)
		}
		res.Bracket = &br

		sim, err := r.client.Simulate(ctx, ev.ID, f.Simulations)
		if err != nil {
			return res, fmt.Errorf("simulate: %w", err)
		}
		res.Simulation = &sim
	}

	r.logger.Info(ctx, "fixture replayed",
		logger.String("event", ev.ID),
		logger.Int("pools", len(res.Pools)),
		logger.Int("bouts", res.Bouts),
		logger.Uint64("sequence", res.Standings.Sequence),
	)
	return res, nil
}
