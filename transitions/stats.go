package transitions

import (
	"math"
	"sort"

	"bifurcation/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GapStats summarises a gap distribution. Rate is the maximum-likelihood rate of an
// exponential fit, 1/Mean.
type GapStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Rate   float64 `json:"rate"`
}

// Summarize computes GapStats. A single gap has zero standard deviation; Rate stays 0
// when every gap is zero.
func Summarize(gaps []float64) (GapStats, error) {
	if len(gaps) == 0 {
		return GapStats{}, models.InvalidArgument("no gaps to summarise")
	}

	sorted := make([]float64, len(gaps))
	copy(sorted, gaps)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}

	result := GapStats{
		Count:  len(sorted),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	if mean > 0 {
		result.Rate = 1 / mean
	}
	return result, nil
}

// Histogram counts gaps into bins of equal width over [Min, Max]. The last bin is closed.
func Histogram(gaps []float64, bins int) (edges []float64, counts []float64, err error) {
	if len(gaps) == 0 {
		return nil, nil, models.InvalidArgument("no gaps to bin")
	}
	if bins < 1 {
		return nil, nil, models.InvalidArgument("bin count must be positive, got %d", bins)
	}

	sorted := make([]float64, len(gaps))
	copy(sorted, gaps)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		hi = lo + 1
	}
	edges = make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	// stat.Histogram treats the upper divider as exclusive; nudge it so Max is counted.
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts = stat.Histogram(nil, dividers, sorted, nil)
	return edges, counts, nil
}

// IntsToFloats converts raw step counts for Summarize and Histogram.
func IntsToFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
