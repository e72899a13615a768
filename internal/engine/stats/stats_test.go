// internal/engine/stats/stats_test.go
package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	oneToTen := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{name: "median of 1..10", values: oneToTen, p: 50, expected: 5.5},
		{name: "p25 of 1..10", values: oneToTen, p: 25, expected: 3.25},
		{name: "p75 of 1..10", values: oneToTen, p: 75, expected: 7.75},
		{name: "p90 of 1..10", values: oneToTen, p: 90, expected: 9.1},
		{name: "p0 is min", values: oneToTen, p: 0, expected: 1},
		{name: "p100 is max", values: oneToTen, p: 100, expected: 10},
		{name: "single value", values: []float64{4}, p: 75, expected: 4},
		{name: "unsorted input", values: []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}, p: 50, expected: 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Percentile(tt.values, tt.p)
			require.True(t, ok)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestPercentile_Empty(t *testing.T) {
	_, ok := Percentile(nil, 50)
	assert.False(t, ok)
	assert.Equal(t, 4.2, PercentileOr(nil, 50, 4.2))
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, _ = Percentile(values, 50)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2})
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 2.5, s.Median)

	empty := Summarize(nil)
	assert.Zero(t, empty.Min)
	assert.Zero(t, empty.Mean)
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name     string
		xs, ys   []float64
		expected float64
	}{
		{name: "perfect positive", xs: []float64{1, 2, 3, 4}, ys: []float64{2, 4, 6, 8}, expected: 1},
		{name: "perfect negative", xs: []float64{1, 2, 3, 4}, ys: []float64{8, 6, 4, 2}, expected: -1},
		{name: "constant x", xs: []float64{5, 5, 5}, ys: []float64{1, 2, 3}, expected: 0},
		{name: "single point", xs: []float64{1}, ys: []float64{1}, expected: 0},
		{name: "length mismatch", xs: []float64{1, 2}, ys: []float64{1}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pearson(tt.xs, tt.ys)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard(set(), set()))
	assert.Equal(t, 1.0, Jaccard(set("a", "b"), set("b", "a")))
	assert.Equal(t, 0.0, Jaccard(set("a"), set("b")))
	assert.InDelta(t, 2.0/4.0, Jaccard(set("a", "b", "c"), set("b", "c", "d")), 1e-9)
	assert.Equal(t, 0.0, Jaccard(set(), set("a")))
}

func TestSetDiff(t *testing.T) {
	added, removed, unchanged := SetDiff(set("a", "b", "c"), set("b", "c", "d", "e"))
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, unchanged)
}

func TestFractionAndClamp(t *testing.T) {
	assert.Equal(t, 0.0, Fraction(3, 0))
	assert.Equal(t, 0.75, Fraction(3, 4))
	assert.Equal(t, 100.0, Clamp(130, 0, 100))
	assert.Equal(t, 0.0, Clamp(-1, 0, 100))
	assert.Equal(t, 1.23, Round(1.2345, 2))
}
