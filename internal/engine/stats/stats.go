// internal/engine/stats/stats.go
package stats

import (
	"math"
	"sort"

	"listing-grader/internal/models"
)

// Percentile returns the p-th percentile of values using linear interpolation
// between order statistics (index = p/100 * (n-1)). The input is not modified.
// ok is false for an empty input.
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := Sorted(values)
	return percentileSorted(sorted, p), true
}

// PercentileOr returns the percentile or fallback when values is empty.
func PercentileOr(values []float64, p, fallback float64) float64 {
	v, ok := Percentile(values, p)
	if !ok {
		return fallback
	}
	return v
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Mean sums in ascending order so the result does not depend on input order.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(Sorted(values)) / float64(len(values))
}

func sum(sorted []float64) float64 {
	total := 0.0
	for _, v := range sorted {
		total += v
	}
	return total
}

func Median(values []float64) float64 {
	return PercentileOr(values, 50, 0)
}

// Summarize aggregates values into min/max/mean/median; all zero when empty.
func Summarize(values []float64) models.NumericSummary {
	if len(values) == 0 {
		return models.NumericSummary{}
	}
	sorted := Sorted(values)
	return models.NumericSummary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   sum(sorted) / float64(len(sorted)),
		Median: percentileSorted(sorted, 50),
	}
}

// Fraction returns count/total, 0 when total is 0.
func Fraction(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// Pearson returns the correlation coefficient of xs and ys. Mismatched lengths,
// fewer than two points or zero variance in either series yield 0.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx < 1e-12 || vy < 1e-12 {
		return 0
	}
	r := cov / math.Sqrt(vx*vy)
	if !Finite(r) {
		return 0
	}
	return r
}

// Jaccard is |a ∩ b| / |a ∪ b|. Two empty sets are identical and score 1.
func Jaccard(a, b map[string]struct{}) float64 {
	union := len(a)
	inter := 0
	for id := range b {
		if _, ok := a[id]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// SetDiff reports how many identities were added to, removed from and kept
// between prev and curr.
func SetDiff(prev, curr map[string]struct{}) (added, removed, unchanged int) {
	for id := range curr {
		if _, ok := prev[id]; ok {
			unchanged++
		} else {
			added++
		}
	}
	for id := range prev {
		if _, ok := curr[id]; !ok {
			removed++
		}
	}
	return added, removed, unchanged
}

func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round rounds to the given number of decimals.
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
