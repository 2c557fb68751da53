// Package predict answers pairwise questions against an engine's current view.
package predict

import (
	"fmt"
	"math"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// Touch budgets of a pool bout and a direct-elimination bout.
const (
	PoolBudget = 5
	DEBudget   = 15
)

// Source supplies the view predictions are computed against.
type Source interface {
	View() *engine.View
}

// Predictor computes pairwise win probabilities and expected scores.
type Predictor struct {
	source     Source
	poolBudget int
	deBudget   int
}

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithBudgets overrides the pool and DE touch budgets.
func WithBudgets(pool, de int) Option {
	return func(p *Predictor) {
		if pool > 0 {
			p.poolBudget = pool
		}
		if de > 0 {
			p.deBudget = de
		}
	}
}

// New creates a predictor over source.
func New(source Source, opts ...Option) *Predictor {
	p := &Predictor{source: source, poolBudget: PoolBudget, deBudget: DEBudget}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict returns the chance that a beats b with the head-to-head record and
// expected scores. Either name being unknown is ErrUnknownCompetitor.
func (p *Predictor) Predict(a, b string) (model.Prediction, error) {
	a, b = model.NormalizeName(a), model.NormalizeName(b)
	v := p.source.View()
	sa, err := v.Strength(a)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("predict: %w", err)
	}
	sb, err := v.Strength(b)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("predict: %w", err)
	}

	pa := rating.WinProbability(sa, sb)
	metrics.RecordPrediction()
	return model.Prediction{
		A:         a,
		B:         b,
		ProbA:     pa,
		ProbB:     1 - pa,
		StrengthA: sa,
		StrengthB: sb,
		History:   v.HeadToHead(a, b),
		Pool:      ExpectedScore(p.poolBudget, pa),
		DE:        ExpectedScore(p.deBudget, pa),
	}, nil
}

// ExpectedScore splits budget touches in proportion to pa, rounding to the
// nearest integer pair that sums to budget and leaves the favourite with the
// larger share.
func ExpectedScore(budget int, pa float64) model.ExpectedScore {
	a := int(math.Round(float64(budget) * pa))
	a = max(0, min(budget, a))
	b := budget - a
	if (pa > 0.5 && a < b) || (pa < 0.5 && a > b) {
		a, b = b, a
	}
	return model.ExpectedScore{Budget: budget, A: a, B: b}
}
