package step

import (
	"strconv"
	"time"
)

// DefaultWaitThreshold is the smallest gap between two timed records that
// counts as waiting. Synchronous code shows gaps of a few milliseconds.
const DefaultWaitThreshold = 20 * time.Millisecond

// AddWaitSteps returns steps with a wait record inserted wherever two
// consecutive timed records are at least threshold apart.
func AddWaitSteps(steps []Step, threshold time.Duration) []Step {
	min := threshold.Milliseconds()
	out := make([]Step, 0, len(steps))
	for i := range steps {
		if i > 0 && steps[i-1].Timed() && steps[i].Timed() {
			if gap := steps[i].DT - steps[i-1].DT; gap >= min {
				out = append(out, Step{Category: CategoryWait, Num: steps[i-1].Num, DT: steps[i-1].DT, Wait: gap})
			}
		}
		out = append(out, steps[i])
	}
	return out
}

// FormatDT renders a duration in milliseconds for display. Durations under
// 2ms render as the empty string.
func FormatDT(dt int64) string {
	switch {
	case dt < 2:
		return ""
	case dt < 1000:
		return strconv.FormatInt(dt, 10) + " ms"
	default:
		tenths := (dt + 50) / 100
		return strconv.FormatFloat(float64(tenths)/10, 'f', -1, 64) + " s"
	}
}
