package model

// SourceManual tags bouts entered one at a time.
const SourceManual = "manual"

// Observation is one exchange of touches between two competitors.
type Observation struct {
	Sequence uint64 `json:"sequence"`
	A        string `json:"a"`
	B        string `json:"b"`
	TouchesA int    `json:"touches_a"`
	TouchesB int    `json:"touches_b"`
	Source   string `json:"source"`
}

// Involves reports whether name fenced in the bout.
func (o Observation) Involves(name string) bool {
	return o.A == name || o.B == name
}

// Winner returns the name with more touches, or "" for a level score.
func (o Observation) Winner() string {
	switch {
	case o.TouchesA > o.TouchesB:
		return o.A
	case o.TouchesB > o.TouchesA:
		return o.B
	default:
		return ""
	}
}

// From returns the bout seen from name's side: opponent, touches scored and
// touches received. ok is false when name did not fence.
func (o Observation) From(name string) (opponent string, scored, received int, ok bool) {
	switch name {
	case o.A:
		return o.B, o.TouchesA, o.TouchesB, true
	case o.B:
		return o.A, o.TouchesB, o.TouchesA, true
	default:
		return "", 0, 0, false
	}
}

// Tally aggregates a competitor's record.
type Tally struct {
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`
	TouchesFor     int `json:"touches_for"`
	TouchesAgainst int `json:"touches_against"`
}

// Add folds one bout into the tally. A level score counts as neither win nor loss.
func (t *Tally) Add(scored, received int) {
	t.TouchesFor += scored
	t.TouchesAgainst += received
	switch {
	case scored > received:
		t.Wins++
	case scored < received:
		t.Losses++
	}
}

// Bouts is the number of decided bouts.
func (t Tally) Bouts() int { return t.Wins + t.Losses }

// Differential is touches for minus touches against.
func (t Tally) Differential() int { return t.TouchesFor - t.TouchesAgainst }

// HeadToHead is the folded history of two competitors oriented to A.
type HeadToHead struct {
	A        string        `json:"a"`
	B        string        `json:"b"`
	WinsA    int           `json:"wins_a"`
	WinsB    int           `json:"wins_b"`
	TouchesA int           `json:"touches_a"`
	TouchesB int           `json:"touches_b"`
	Bouts    []Observation `json:"bouts"`
}
