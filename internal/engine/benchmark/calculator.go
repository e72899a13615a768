// internal/engine/benchmark/calculator.go
package benchmark

import (
	"time"
	"unicode/utf8"

	"listing-grader/internal/engine/pattern"
	"listing-grader/internal/engine/stats"
	"listing-grader/internal/engine/text"
	"listing-grader/internal/models"
)

// Fallbacks used when a metric has no observations in the exemplar set.
var (
	FallbackRating          = models.Band{Minimum: 3.8, Target: 4.2, Excellent: 4.6}
	FallbackReviews         = models.Band{Minimum: 5, Target: 20, Excellent: 75}
	FallbackImages          = models.Band{Minimum: 3, Target: 6, Excellent: 10}
	FallbackVideos          = models.Band{Minimum: 0, Target: 1, Excellent: 2}
	FallbackTagCount        = models.Band{Minimum: 3, Target: 5, Excellent: 8}
	FallbackTitleLength     = models.Range{Min: 20, Max: 70, Target: 45}
	FallbackShortDescLength = models.Range{Min: 60, Max: 200, Target: 130}
	FallbackLongDescLength  = models.Range{Min: 300, Max: 3000, Target: 1200}
	FallbackPrice           = models.Range{Min: 5, Max: 50, Target: 20}
	FallbackFreshness       = models.FreshnessBand{ExcellentDays: 30, TargetDays: 90, MaximumDays: 365}
)

// Calculator turns raw per-listing measures into percentile benchmarks.
type Calculator struct {
	now func() time.Time
}

func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// Measures holds the raw per-listing values a benchmark is computed from.
type Measures struct {
	Ratings      []float64 // rated listings only
	Reviews      []float64
	Images       []float64
	Videos       []float64
	TagCounts    []float64
	TitleLengths []float64
	ShortLengths []float64
	LongLengths  []float64
	Prices       []float64 // positive prices only
	Freshness    []float64 // days since update, dated listings only
}

// Measure collects Measures from exemplars.
func (c *Calculator) Measure(exemplars []models.Listing) Measures {
	now := c.now()
	m := Measures{}
	for _, l := range exemplars {
		if avg := l.AverageRating(); avg > 0 {
			m.Ratings = append(m.Ratings, avg)
		}
		m.Reviews = append(m.Reviews, float64(l.Reviews()))
		m.Images = append(m.Images, float64(l.ImagesCount))
		m.Videos = append(m.Videos, float64(l.VideosCount))
		m.TagCounts = append(m.TagCounts, float64(len(pattern.NormalizeTags(l.Tags))))
		m.TitleLengths = append(m.TitleLengths, float64(utf8.RuneCountInString(l.Title)))
		m.ShortLengths = append(m.ShortLengths, float64(text.StrippedLength(l.ShortDescription)))
		m.LongLengths = append(m.LongLengths, float64(text.StrippedLength(l.LongDescription)))
		if days, ok := l.DaysSinceUpdate(now); ok {
			m.Freshness = append(m.Freshness, days)
		}
	}
	m.Prices = pattern.PositivePrices(exemplars)
	return m
}

// Benchmark computes category benchmarks from the raw exemplar values. The
// patterns argument is accepted for callers that already hold them; every band
// is computed from per-listing values, never from aggregates.
func (c *Calculator) Benchmark(_ models.CategoryPatterns, exemplars []models.Listing) models.CategoryBenchmarks {
	return FromMeasures(c.Measure(exemplars))
}

// FromMeasures is the pure percentile step of Benchmark.
func FromMeasures(m Measures) models.CategoryBenchmarks {
	return models.CategoryBenchmarks{
		Rating:          band(m.Ratings, FallbackRating),
		Reviews:         band(m.Reviews, FallbackReviews),
		Images:          band(m.Images, FallbackImages),
		Videos:          band(m.Videos, FallbackVideos),
		TagCount:        band(m.TagCounts, FallbackTagCount),
		TitleLength:     lengthRange(m.TitleLengths, FallbackTitleLength),
		ShortDescLength: lengthRange(m.ShortLengths, FallbackShortDescLength),
		LongDescLength:  lengthRange(m.LongLengths, FallbackLongDescLength),
		Price:           priceRange(m.Prices, FallbackPrice),
		Freshness:       freshness(m.Freshness, FallbackFreshness),
	}
}

// band is {p25, p50, p75}.
func band(values []float64, fallback models.Band) models.Band {
	return models.Band{
		Minimum:   stats.PercentileOr(values, 25, fallback.Minimum),
		Target:    stats.PercentileOr(values, 50, fallback.Target),
		Excellent: stats.PercentileOr(values, 75, fallback.Excellent),
	}
}

// lengthRange is {p25, p90, p50}.
func lengthRange(values []float64, fallback models.Range) models.Range {
	return models.Range{
		Min:    stats.PercentileOr(values, 25, fallback.Min),
		Max:    stats.PercentileOr(values, 90, fallback.Max),
		Target: stats.PercentileOr(values, 50, fallback.Target),
	}
}

// priceRange is the interquartile range around the median.
func priceRange(values []float64, fallback models.Range) models.Range {
	return models.Range{
		Min:    stats.PercentileOr(values, 25, fallback.Min),
		Max:    stats.PercentileOr(values, 75, fallback.Max),
		Target: stats.PercentileOr(values, 50, fallback.Target),
	}
}

// freshness is {p25, p50, p90} of days since update; lower is fresher.
func freshness(values []float64, fallback models.FreshnessBand) models.FreshnessBand {
	return models.FreshnessBand{
		ExcellentDays: stats.PercentileOr(values, 25, fallback.ExcellentDays),
		TargetDays:    stats.PercentileOr(values, 50, fallback.TargetDays),
		MaximumDays:   stats.PercentileOr(values, 90, fallback.MaximumDays),
	}
}
