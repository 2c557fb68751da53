// Package replay drives a running touchrank server through a recorded
// tournament: it opens an event, registers the field, posts every pool and
// bout in order, then reads back standings, predictions and a bracket
// simulation.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// ErrInvalidFixture is returned for fixtures that cannot be replayed.
var ErrInvalidFixture = errors.New("invalid fixture")

// Pair names two competitors to predict.
type Pair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Fixture is a tournament recorded as YAML.
type Fixture struct {
	Event       string             `yaml:"event"`
	Competitors []model.Entrant    `yaml:"competitors"`
	Pools       []ingest.PoolSheet `yaml:"pools"`
	Bouts       []ingest.Bout      `yaml:"bouts"`
	Bracket     []string           `yaml:"bracket"`
	Predictions []Pair             `yaml:"predictions"`
	Simulations int                `yaml:"simulations"`
}

// LoadFixture reads and validates the fixture at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a YAML fixture. Unknown keys are errors.
func ParseFixture(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fixture locally so a bad file fails before anything is
// sent to the server.
func (f *Fixture) Validate() error {
	if f.Event == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidFixture)
	}
	if len(f.Pools) == 0 && len(f.Bouts) == 0 {
		return fmt.Errorf("%w: no pools or bouts", ErrInvalidFixture)
	}
	seen := make(map[string]struct{}, len(f.Pools))
	for i := range f.Pools {
		p := &f.Pools[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: pool %d: %w", ErrInvalidFixture, i+1, err)
		}
		if _, dup := seen[p.PoolID]; dup {
			return fmt.Errorf("%w: pool id %q repeated", ErrInvalidFixture, p.PoolID)
		}
		seen[p.PoolID] = struct{}{}
	}
	for i := range f.Bouts {
		if err := f.Bouts[i].Validate(); err != nil {
			return fmt.Errorf("%w: bout %d: %w", ErrInvalidFixture, i+1, err)
		}
	}
	for i, p := range f.Predictions {
		if p.A == "" || p.B == "" {
			return fmt.Errorf("%w: prediction %d needs both a and b", ErrInvalidFixture, i+1)
		}
	}
	if f.Simulations < 0 {
		return fmt.Errorf("%w: simulations must not be negative", ErrInvalidFixture)
	}
	return nil
}
