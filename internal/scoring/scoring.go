// Package scoring compares face embeddings and maps raw cosine scores to display
// percents and colors.
package scoring

import (
	"fmt"
	"math"
	"strings"
)

// PercentMode selects how raw scores become display percents for one job.
type PercentMode int

const (
	// ModeAbsolute maps [-1, 1] linearly to [0, 100]; run independent.
	ModeAbsolute PercentMode = iota
	// ModePercentile normalises over the batch of scores of one run.
	ModePercentile
)

func (m PercentMode) String() string {
	switch m {
	case ModePercentile:
		return "percentile"
	default:
		return "absolute"
	}
}

// ParsePercentMode parses "absolute" or "percentile" (case-insensitive).
// An empty string yields ModeAbsolute.
func ParsePercentMode(s string) (PercentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absolute", "abs":
		return ModeAbsolute, nil
	case "percentile", "pct":
		return ModePercentile, nil
	default:
		return ModeAbsolute, fmt.Errorf("unknown percent mode %q", s)
	}
}

// Cosine returns the dot product of a and b. Both vectors are expected to be
// L2-normalized already, so this equals their cosine similarity.
// Vectors of different length compare over the shorter prefix.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineScores scores every candidate against query, preserving input order.
func CosineScores(query []float32, candidates [][]float32) []float64 {
	if len(candidates) == 0 {
		return []float64{}
	}
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = Cosine(query, c)
	}
	return scores
}

// AbsolutePercent maps a cosine score in [-1, 1] to [0, 100].
// Halves round away from zero.
func AbsolutePercent(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	p := math.Round((score + 1) / 2 * 100)
	return int(math.Max(0, math.Min(100, p)))
}
