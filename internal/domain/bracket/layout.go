package bracket

import (
	"fmt"
	"math/bits"
)

// Size returns the bracket size for n entrants: the next power of two.
func Size(n int) int {
	if n <= 1 {
		return 2
	}
	return 1 << bits.Len(uint(n-1))
}

// Positions returns the first-round seed pairs of a bracket of the given
// size, top of the draw first, using the standard fold: each pair (a, b) of
// the half-size draw becomes (a, size+1-a) and (b, size+1-b). Adjacent pairs
// meet in the next round, and seed 1 meets seed size, so when seeds above
// the entrant count are byes the top seeds receive them in order.
func Positions(size int) [][2]int {
	if size <= 2 {
		return [][2]int{{1, 2}}
	}
	half := Positions(size / 2)
	out := make([][2]int, 0, size/2)
	for _, p := range half {
		out = append(out,
			[2]int{p[0], size + 1 - p[0]},
			[2]int{p[1], size + 1 - p[1]},
		)
	}
	return out
}

// RoundLabels names each round of a bracket by the number of competitors
// still in it, followed by "Champion".
func RoundLabels(size int) []string {
	var labels []string
	for remaining := size; remaining >= 2; remaining /= 2 {
		labels = append(labels, roundLabel(remaining))
	}
	return append(labels, LabelChampion)
}

// LabelChampion is the pseudo-round reached by winning the final.
const LabelChampion = "Champion"

func roundLabel(remaining int) string {
	switch remaining {
	case 2:
		return "Final"
	case 4:
		return "Semifinal"
	case 8:
		return "Quarterfinal"
	default:
		return fmt.Sprintf("Round of %d", remaining)
	}
}
