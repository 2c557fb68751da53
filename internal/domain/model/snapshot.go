package model

import "time"

// SnapshotVersion is the current export format.
const SnapshotVersion = 1

// Snapshot is everything needed to rebuild an engine: the roster, the full
// observation log and the trajectory recorded so far. Strengths are not
// stored; they are recomputed on import.
type Snapshot struct {
	Version      int                  `json:"version"`
	PriorWeight  float64              `json:"prior_weight"`
	Sequence     uint64               `json:"sequence"`
	Roster       []Entrant            `json:"roster"`
	Observations []Observation        `json:"observations"`
	Trajectory   []TrajectorySnapshot `json:"trajectory"`
}

// EventInfo describes one tournament hosted by the service.
type EventInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotRecord is a persisted snapshot of one event.
type SnapshotRecord struct {
	Event    EventInfo `json:"event"`
	Sequence uint64    `json:"sequence"`
	SavedAt  time.Time `json:"saved_at"`
	Snapshot Snapshot  `json:"snapshot"`
}
