package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/observation"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/rating"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// ErrUnsupportedSnapshot is returned for snapshots of an unknown version.
var ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")

// Export returns a deep copy of the engine's durable state.
func (e *Engine) Export() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	traj := make([]model.TrajectorySnapshot, len(e.trajectory))
	for i, s := range e.trajectory {
		s.Points = maps.Clone(s.Points)
		traj[i] = s
	}
	return model.Snapshot{
		Version:      model.SnapshotVersion,
		PriorWeight:  e.solver.PriorWeight(),
		Sequence:     e.seq,
		Roster:       slices.Clone(e.roster),
		Observations: slices.Clone(e.store.All()),
		Trajectory:   traj,
	}
}

// Import replaces the engine's state with snap and refits. The trajectory is
// restored as recorded; no new snapshot is appended.
func (e *Engine) Import(ctx context.Context, snap model.Snapshot) (*View, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if snap.PriorWeight > 0 && snap.PriorWeight != e.solver.PriorWeight() {
		opts := append(slices.Clone(e.solverOpts), rating.WithPriorWeight(snap.PriorWeight))
		e.solver = rating.New(opts...)
	}
	e.roster = nil
	e.rosterIdx = make(map[string]int, len(snap.Roster))
	e.strengths = nil
	e.store = observation.New()
	for _, en := range snap.Roster {
		e.register(en)
	}
	for _, obs := range snap.Observations {
		e.register(model.Entrant{Name: obs.A})
		e.register(model.Entrant{Name: obs.B})
		e.store.Record(obs)
	}
	e.seq = snap.Sequence
	e.trajectory = make([]model.TrajectorySnapshot, 0, len(snap.Trajectory))
	e.lastSnap = 0
	for _, s := range snap.Trajectory {
		s.Points = maps.Clone(s.Points)
		e.trajectory = append(e.trajectory, s)
		e.lastSnap = s.Sequence
	}
	e.refit(ctx)
	v := e.publish()
	e.mu.Unlock()

	e.logger.Info(ctx, "snapshot imported",
		logger.Int("competitors", v.Len()),
		logger.Int("observations", len(snap.Observations)),
		logger.Uint64("sequence", snap.Sequence),
	)
	return v, nil
}

func validateSnapshot(snap model.Snapshot) error {
	if snap.Version != model.SnapshotVersion {
		return fmt.Errorf("version %d: %w", snap.Version, ErrUnsupportedSnapshot)
	}
	var last uint64
	for i, obs := range snap.Observations {
		if obs.Sequence <= last {
			return fmt.Errorf("observation %d: sequence %d not increasing: %w", i, obs.Sequence, model.ErrInvalidObservation)
		}
		last = obs.Sequence
		if obs.A == "" || obs.B == "" || obs.A == obs.B || obs.TouchesA < 0 || obs.TouchesB < 0 {
			return fmt.Errorf("observation %d: malformed bout: %w", i, model.ErrInvalidObservation)
		}
	}
	if snap.Sequence < last {
		return fmt.Errorf("sequence %d behind last observation %d: %w", snap.Sequence, last, model.ErrInvalidObservation)
	}
	var prev uint64
	for i, s := range snap.Trajectory {
		if i > 0 && s.Sequence < prev {
			return fmt.Errorf("trajectory %d out of order: %w", i, model.ErrInvalidObservation)
		}
		prev = s.Sequence
	}
	return nil
}
