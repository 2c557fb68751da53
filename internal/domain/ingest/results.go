package ingest

import (
	"sort"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// PoolResults computes the round-robin table for a sheet: victories, touches
// scored and received, indicator and place. Places are ordered by victories,
// then indicator, then touches scored. scores must be square with one row per
// name.
func PoolResults(names []string, scores [][]*int) []model.PoolResult {
	n := len(names)
	out := make([]model.PoolResult, n)
	for i := range n {
		r := model.PoolResult{Name: names[i]}
		for j := range n {
			if i == j {
				continue
			}
			scored, received := scores[i][j], scores[j][i]
			// A half-reported bout is not recorded, so it counts for neither side.
			if scored == nil || received == nil {
				continue
			}
			r.Bouts++
			r.TS += *scored
			r.TR += *received
			if *scored > *received {
				r.V++
			}
		}
		r.Indicator = r.TS - r.TR
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.V != b.V {
			return a.V > b.V
		}
		if a.Indicator != b.Indicator {
			return a.Indicator > b.Indicator
		}
		return a.TS > b.TS
	})
	for i := range out {
		out[i].Place = i + 1
	}
	return out
}
