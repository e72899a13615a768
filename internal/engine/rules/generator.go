// internal/engine/rules/generator.go
package rules

import (
	"fmt"
	"math"
	"time"

	"listing-grader/internal/engine/benchmark"
	"listing-grader/internal/engine/stats"
	"listing-grader/internal/models"
)

const (
	BestSellerBoostFraction = 0.2
	SourceDynamic           = "dynamic"
)

// Generator derives DynamicCategoryRules for one category at a time. It holds
// no mutable state, so one instance may serve concurrent categories.
type Generator struct {
	calculator *benchmark.Calculator
	now        func() time.Time
}

type Option func(*Generator)

// WithClock fixes the clock used for freshness benchmarks and metadata stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	g.calculator = benchmark.NewCalculator(g.now)
	return g
}

// Generate builds the rules for category from its scored exemplars. fallback
// is copied before any adjustment and is never modified.
func (g *Generator) Generate(category string, exemplars []models.Exemplar, patterns models.CategoryPatterns, fallback models.StaticConfig) models.DynamicCategoryRules {
	cfg := fallback.Clone()
	listings := make([]models.Listing, len(exemplars))
	bestSellers := 0
	for i, e := range exemplars {
		listings[i] = e.Listing
		if e.IsBestSeller {
			bestSellers++
		}
	}

	bench := g.calculator.Benchmark(patterns, listings)
	m := g.calculator.Measure(listings)
	bestSellerFraction := stats.Fraction(bestSellers, len(exemplars))

	weights, adjustments := AdjustWeights(cfg.Weights, m, bench, bestSellerFraction)

	return models.DynamicCategoryRules{
		Category:         category,
		Weights:          weights,
		Thresholds:       AdjustThresholds(cfg.Thresholds, bench),
		Benchmarks:       bench,
		WeightImportance: Importance(exemplars),
		Confidence:       Confidence(listings),
		SuccessPatterns:  SuccessPatterns(exemplars),
		CommonFailures:   CommonFailures(),
		Metadata: models.RuleMetadata{
			GeneratedAt:        g.now().UTC(),
			ExemplarCount:      len(exemplars),
			BestSellerCount:    bestSellers,
			BestSellerFraction: stats.Round(bestSellerFraction, 4),
			Source:             SourceDynamic,
			Adjustments:        adjustments,
		},
	}
}

// AdjustWeights applies the benchmark-driven weight rules to w and enforces the
// ceilings. The returned slice names each adjustment that fired.
func AdjustWeights(w models.Weights, m benchmark.Measures, bench models.CategoryBenchmarks, bestSellerFraction float64) (models.Weights, []string) {
	var applied []string

	if len(m.Images) > 0 && stats.Mean(m.Images) > bench.Images.Excellent {
		w.Images += 2
		applied = append(applied, "images+2")
	}
	if len(m.Videos) > 0 && stats.Mean(m.Videos) > bench.Videos.Excellent {
		w.Videos += 2
		applied = append(applied, "videos+2")
	}
	if len(m.Ratings) > 0 && stats.Mean(m.Ratings) > bench.Rating.Excellent {
		w.Rating++
		applied = append(applied, "rating+1")
	}
	if len(m.Reviews) > 0 && stats.Mean(m.Reviews) > bench.Reviews.Excellent {
		w.Reviews++
		applied = append(applied, "reviews+1")
	}
	if bestSellerFraction > BestSellerBoostFraction {
		factor := 1 + 0.1*bestSellerFraction
		w.Title *= factor
		w.ShortDescription *= factor
		w.LongDescription *= factor
		w.Tags *= factor
		applied = append(applied, fmt.Sprintf("content*%.3f", factor))
	}

	return w.Capped(), applied
}

// AdjustThresholds overwrites the length, trust and freshness bounds with the
// category benchmarks.
func AdjustThresholds(th models.Thresholds, bench models.CategoryBenchmarks) models.Thresholds {
	th.TitleMinLength = roundInt(bench.TitleLength.Min)
	th.TitleMaxLength = maxInt(roundInt(bench.TitleLength.Max), th.TitleMinLength)
	th.ShortDescMinLength = roundInt(bench.ShortDescLength.Min)
	th.ShortDescMaxLength = maxInt(roundInt(bench.ShortDescLength.Max), th.ShortDescMinLength)
	th.MinRating = stats.Round(bench.Rating.Minimum, 2)
	th.MinReviews = roundInt(bench.Reviews.Minimum)
	th.FreshnessMaxDays = maxInt(roundInt(bench.Freshness.MaximumDays), 1)
	return th
}

func roundInt(v float64) int {
	if !stats.Finite(v) {
		return 0
	}
	return int(math.Round(v))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
