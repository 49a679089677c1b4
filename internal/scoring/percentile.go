package scoring

import (
	"math"
	"slices"
)

// Percentile returns the p-th percentile (0..100) of scores using linear
// interpolation between closest ranks. Returns NaN for an empty slice.
func Percentile(scores []float64, p float64) float64 {
	if len(scores) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(scores)
	slices.Sort(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// PercentileNormalize maps scores to 0..100 relative to the batch: the low
// percentile maps to 0 and the high percentile to 100, clipped. When that
// interval is degenerate it falls back to min-max over the batch, and to all
// zeros when every score is equal. Rounding is half-to-even.
func PercentileNormalize(scores []float64, lowPercentile, highPercentile float64) []int {
	out := make([]int, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo := Percentile(scores, lowPercentile)
	hi := Percentile(scores, highPercentile)

	if !isFinite(lo) || !isFinite(hi) || hi <= lo {
		lo, hi = slices.Min(scores), slices.Max(scores)
		if hi <= lo {
			return out
		}
	}

	span := math.Max(1e-6, hi-lo)
	for i, s := range scores {
		n := (s - lo) / span
		if math.IsNaN(n) {
			n = 0
		}
		n = math.Max(0, math.Min(1, n))
		out[i] = int(math.RoundToEven(n * 100))
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
