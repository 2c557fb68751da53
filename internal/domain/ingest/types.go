package ingest

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// Touch limits.
const (
	PoolTouches = 5
	DETouches   = 15
)

var validate = validator.New()

// PoolSheet is an approved round-robin score sheet. Scores[row][col] is the
// touches fencer row scored against fencer col; nil means not reported and
// the diagonal is ignored. Indicators is the optional indicator column as
// written on the sheet.
type PoolSheet struct {
	PoolID     string          `json:"pool_id" yaml:"pool_id" validate:"required"`
	Fencers    []model.Entrant `json:"fencers" yaml:"fencers" validate:"min=2,dive"`
	Scores     [][]*int        `json:"scores" yaml:"scores" validate:"required"`
	Indicators []int           `json:"indicators,omitempty" yaml:"indicators,omitempty"`
}

// Validate checks the sheet's shape. Fencing rules are checked by IngestPool.
func (p *PoolSheet) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("pool sheet: %v: %w", err, model.ErrInvalidObservation)
	}
	return nil
}

// Bout is a single manually entered result.
type Bout struct {
	A      string `json:"a" yaml:"a" validate:"required"`
	B      string `json:"b" yaml:"b" validate:"required"`
	ScoreA int    `json:"score_a" yaml:"score_a" validate:"min=0,max=15"`
	ScoreB int    `json:"score_b" yaml:"score_b" validate:"min=0,max=15"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Validate checks names and the score range.
func (b *Bout) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("bout: %v: %w", err, model.ErrInvalidObservation)
	}
	return nil
}

// PoolReport summarises an accepted sheet.
type PoolReport struct {
	PoolID       string             `json:"pool_id"`
	Observations int                `json:"observations"`
	Skipped      int                `json:"skipped"`
	Warnings     []string           `json:"warnings"`
	Results      []model.PoolResult `json:"results"`
	Sequence     uint64             `json:"sequence"`
}

// BoutReport is the recorded bout with its sequence.
type BoutReport struct {
	Observation model.Observation `json:"observation"`
	Sequence    uint64            `json:"sequence"`
}
