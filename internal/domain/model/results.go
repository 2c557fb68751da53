package model

// ExpectedScore is a touch budget split between two competitors.
type ExpectedScore struct {
	Budget int `json:"budget"`
	A      int `json:"a"`
	B      int `json:"b"`
}

// Prediction answers "who wins between A and B".
type Prediction struct {
	A         string        `json:"a"`
	B         string        `json:"b"`
	ProbA     float64       `json:"prob_a"`
	ProbB     float64       `json:"prob_b"`
	StrengthA float64       `json:"strength_a"`
	StrengthB float64       `json:"strength_b"`
	History   HeadToHead    `json:"head_to_head"`
	Pool      ExpectedScore `json:"expected_pool"`
	DE        ExpectedScore `json:"expected_de"`
}

// CompetitorOdds holds per-round percentages for one seed.
type CompetitorOdds struct {
	Seed   int                `json:"seed"`
	Name   string             `json:"name"`
	Rounds map[string]float64 `json:"rounds"`
}

// SimulationResult is the tally of a Monte Carlo bracket run.
type SimulationResult struct {
	Trials      int              `json:"trials"`
	Size        int              `json:"bracket_size"`
	Rounds      []string         `json:"rounds"`
	Competitors []CompetitorOdds `json:"competitors"`
}

// Odds returns the percentage for name reaching round, or false.
func (r SimulationResult) Odds(name, round string) (float64, bool) {
	for _, c := range r.Competitors {
		if c.Name == name {
			v, ok := c.Rounds[round]
			return v, ok
		}
	}
	return 0, false
}

// Matchup is a first-round slot pair. An empty name is a bye.
type Matchup struct {
	Top        string `json:"top"`
	TopSeed    int    `json:"top_seed"`
	Bottom     string `json:"bottom,omitempty"`
	BottomSeed int    `json:"bottom_seed"`
}

// PoolResult is one fencer's line of a round-robin result table.
type PoolResult struct {
	Name      string `json:"name"`
	V         int    `json:"v"`
	Bouts     int    `json:"bouts"`
	TS        int    `json:"ts"`
	TR        int    `json:"tr"`
	Indicator int    `json:"indicator"`
	Place     int    `json:"place"`
}

// BoutRecord is a bout seen from one competitor's side.
type BoutRecord struct {
	Sequence         uint64  `json:"sequence"`
	Opponent         string  `json:"opponent"`
	OpponentStrength float64 `json:"opponent_strength"`
	TouchesFor       int     `json:"touches_for"`
	TouchesAgainst   int     `json:"touches_against"`
	Victory          bool    `json:"victory"`
	Upset            bool    `json:"upset"`
	Source           string  `json:"source"`
}

// SourceSummary aggregates a competitor's bouts from one pool or source.
type SourceSummary struct {
	Source    string `json:"source"`
	V         int    `json:"v"`
	Bouts     int    `json:"bouts"`
	TS        int    `json:"ts"`
	TR        int    `json:"tr"`
	Indicator int    `json:"indicator"`
}

// Detail is the full profile of one competitor.
type Detail struct {
	Standing
	History []BoutRecord    `json:"history"`
	Sources []SourceSummary `json:"sources"`
	Series  []SeriesPoint   `json:"series"`
}
