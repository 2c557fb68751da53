// Package ingest turns approved pool sheets and manually entered bouts into
// engine observations. It is the only way evidence reaches an engine: a pool
// is checked, deduplicated and applied in one call, so approving a sheet and
// ingesting it cannot drift apart.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/dedupe"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// Applier records a batch and refits synchronously.
type Applier interface {
	Apply(ctx context.Context, b engine.Batch) (*engine.View, error)
}

// Adapter validates submissions and applies them to an engine.
type Adapter struct {
	engine Applier
	pools  dedupe.Deduper
	logger logger.Logger
}

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDeduper sets the pool id ledger.
func WithDeduper(d dedupe.Deduper) Option {
	return func(a *Adapter) {
		if d != nil {
			a.pools = d
		}
	}
}

// New creates an adapter writing to e.
func New(e Applier, opts ...Option) *Adapter {
	a := &Adapter{engine: e}
	for _, opt := range opts {
		opt(a)
	}
	if a.pools == nil {
		a.pools = dedupe.NewInMemoryDeduper()
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("ingest")
	}
	return a
}

// Pools returns the ledger of accepted pool ids.
func (a *Adapter) Pools() dedupe.Deduper { return a.pools }

// IngestPool checks sheet, records one observation per reported pair and
// refits. The sheet is rejected as a whole on any error, and a pool id is
// accepted once.
func (a *Adapter) IngestPool(ctx context.Context, sheet PoolSheet) (PoolReport, error) {
	obs, report, err := a.decompose(ctx, sheet)
	if err != nil {
		a.reject(ctx, "pool", err, logger.String("pool_id", sheet.PoolID))
		return PoolReport{}, err
	}

	if a.pools.SeenAndRecord(ctx, report.PoolID) {
		err := fmt.Errorf("pool %q: %w", report.PoolID, model.ErrDuplicatePool)
		a.reject(ctx, "pool", err, logger.String("pool_id", report.PoolID))
		return PoolReport{}, err
	}

	v, err := a.engine.Apply(ctx, engine.Batch{
		Label:        "Pool " + report.PoolID,
		Entrants:     sheet.Fencers,
		Observations: obs,
	})
	if err != nil {
		a.pools.Unrecord(ctx, report.PoolID)
		a.reject(ctx, "pool", err, logger.String("pool_id", report.PoolID))
		return PoolReport{}, err
	}

	metrics.RecordPoolIngested()
	report.Sequence = v.Sequence()
	a.logger.Info(ctx, "pool ingested",
		logger.String("pool_id", report.PoolID),
		logger.Int("observations", report.Observations),
		logger.Int("skipped", report.Skipped),
		logger.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

// decompose validates sheet and returns its observations.
func (a *Adapter) decompose(ctx context.Context, sheet PoolSheet) ([]model.Observation, PoolReport, error) {
	if err := sheet.Validate(); err != nil {
		return nil, PoolReport{}, err
	}
	poolID := model.NormalizeName(sheet.PoolID)
	if poolID == "" {
		return nil, PoolReport{}, fmt.Errorf("empty pool id: %w", model.ErrInvalidObservation)
	}

	n := len(sheet.Fencers)
	names := make([]string, n)
	seen := make(map[string]bool, n)
	for i, f := range sheet.Fencers {
		name := model.NormalizeName(f.Name)
		if name == "" {
			return nil, PoolReport{}, fmt.Errorf("fencer %d has no name: %w", i+1, model.ErrInvalidObservation)
		}
		if seen[name] {
			return nil, PoolReport{}, fmt.Errorf("fencer %q listed twice: %w", name, model.ErrInvalidObservation)
		}
		seen[name] = true
		names[i] = name
	}

	if len(sheet.Scores) != n {
		return nil, PoolReport{}, fmt.Errorf("matrix has %d rows for %d fencers: %w", len(sheet.Scores), n, model.ErrInvalidObservation)
	}
	for i, row := range sheet.Scores {
		if len(row) != n {
			return nil, PoolReport{}, fmt.Errorf("matrix row %d has %d cells, want %d: %w", i+1, len(row), n, model.ErrInvalidObservation)
		}
		for j, cell := range row {
			if i == j || cell == nil {
				continue
			}
			if *cell < 0 || *cell > PoolTouches {
				return nil, PoolReport{}, fmt.Errorf("%s vs %s: score %d outside 0-%d: %w", names[i], names[j], *cell, PoolTouches, model.ErrInvalidObservation)
			}
		}
	}

	report := PoolReport{PoolID: poolID, Warnings: []string{}}
	var obs []model.Observation
	for i := range n {
		for j := i + 1; j < n; j++ {
			ta, tb := sheet.Scores[i][j], sheet.Scores[j][i]
			if ta == nil || tb == nil {
				if ta != nil || tb != nil {
					report.Warnings = append(report.Warnings, fmt.Sprintf("%s vs %s: only one score reported, bout skipped", names[i], names[j]))
				}
				report.Skipped++
				continue
			}
			if *ta == *tb {
				return nil, PoolReport{}, fmt.Errorf("%s vs %s: tied at %d-%d: %w", names[i], names[j], *ta, *tb, model.ErrInvalidObservation)
			}
			if *ta != PoolTouches && *tb != PoolTouches {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s (%d) vs %s (%d): neither scored %d", names[i], *ta, names[j], *tb, PoolTouches))
			}
			obs = append(obs, model.Observation{A: names[i], B: names[j], TouchesA: *ta, TouchesB: *tb, Source: poolID})
		}
	}

	if len(obs) == 0 {
		return nil, PoolReport{}, fmt.Errorf("pool %q: no bout fully reported: %w", poolID, model.ErrInvalidObservation)
	}

	report.Results = PoolResults(names, sheet.Scores)
	if err := checkIndicators(names, report.Results, sheet.Indicators); err != nil {
		return nil, PoolReport{}, err
	}
	report.Observations = len(obs)

	for _, w := range report.Warnings {
		a.logger.Warn(ctx, "pool sheet anomaly", logger.String("pool_id", poolID), logger.String("detail", w))
	}
	return obs, report, nil
}

// checkIndicators verifies the indicator column written on the sheet: it
// must sum to zero and agree with the matrix.
func checkIndicators(names []string, results []model.PoolResult, reported []int) error {
	if len(reported) == 0 {
		return nil
	}
	if len(reported) != len(names) {
		return fmt.Errorf("%d indicators for %d fencers: %w", len(reported), len(names), model.ErrInvalidObservation)
	}
	derived := make(map[string]int, len(results))
	for _, r := range results {
		derived[r.Name] = r.Indicator
	}
	sum := 0
	for _, ind := range reported {
		sum += ind
	}
	if sum != 0 {
		return fmt.Errorf("reported indicator sum is %d, should be 0: %w", sum, model.ErrInvalidObservation)
	}
	for i, name := range names {
		if reported[i] != derived[name] {
			return fmt.Errorf("%s: reported indicator %d, scores give %d: %w", name, reported[i], derived[name], model.ErrInvalidObservation)
		}
	}
	return nil
}

// AddBout records a single bout, up to 15 touches a side, and refits.
func (a *Adapter) AddBout(ctx context.Context, b Bout) (BoutReport, error) {
	obs, err := boutObservation(b)
	if err != nil {
		a.reject(ctx, "bout", err, logger.String("a", b.A), logger.String("b", b.B))
		return BoutReport{}, err
	}

	v, err := a.engine.Apply(ctx, engine.Batch{Observations: []model.Observation{obs}})
	if err != nil {
		a.reject(ctx, "bout", err, logger.String("a", obs.A), logger.String("b", obs.B))
		return BoutReport{}, err
	}
	all := v.Observations()
	recorded := all[len(all)-1]
	return BoutReport{Observation: recorded, Sequence: recorded.Sequence}, nil
}

func boutObservation(b Bout) (model.Observation, error) {
	b.A, b.B = model.NormalizeName(b.A), model.NormalizeName(b.B)
	if err := b.Validate(); err != nil {
		return model.Observation{}, err
	}
	switch {
	case b.A == b.B:
		return model.Observation{}, fmt.Errorf("%q cannot fence themselves: %w", b.A, model.ErrInvalidObservation)
	case b.ScoreA == b.ScoreB:
		return model.Observation{}, fmt.Errorf("equal scores %d-%d have no winner: %w", b.ScoreA, b.ScoreB, model.ErrInvalidObservation)
	}
	source := model.NormalizeName(b.Source)
	if source == "" {
		source = model.SourceManual
	}
	return model.Observation{A: b.A, B: b.B, TouchesA: b.ScoreA, TouchesB: b.ScoreB, Source: source}, nil
}

func (a *Adapter) reject(ctx context.Context, kind string, err error, fields ...logger.Field) {
	metrics.RecordIngestRejection(RejectionReason(err))
	a.logger.Warn(ctx, kind+" rejected", append(fields, logger.Error(err))...)
}

// RejectionReason maps an ingestion error to a short metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrDuplicatePool):
		return "duplicate_pool"
	case errors.Is(err, model.ErrInvalidObservation):
		return "invalid_observation"
	case errors.Is(err, model.ErrUnknownCompetitor):
		return "unknown_competitor"
	default:
		return "other"
	}
}
