package model

// TrajectoryPoint is one competitor's value inside a snapshot.
type TrajectoryPoint struct {
	Strength float64 `json:"strength"`
	WinProb  float64 `json:"win_prob"`
}

// TrajectorySnapshot is the state of every known competitor after a refit.
type TrajectorySnapshot struct {
	Sequence uint64                     `json:"sequence"`
	Label    string                     `json:"label"`
	Points   map[string]TrajectoryPoint `json:"points"`
}

// SeriesPoint is a single competitor's trajectory entry, ready for plotting.
type SeriesPoint struct {
	Sequence uint64  `json:"sequence"`
	Label    string  `json:"label"`
	Strength float64 `json:"strength"`
	WinProb  float64 `json:"win_prob"`
}
