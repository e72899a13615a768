// internal/engine/rules/analysis.go
package rules

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"listing-grader/internal/engine/pattern"
	"listing-grader/internal/engine/stats"
	"listing-grader/internal/engine/text"
	"listing-grader/internal/models"
)

// Importance shares: the three correlated dimensions split CorrelatedShare in
// proportion to |r|, findability is fixed.
const (
	CorrelatedShare   = 70.0
	FindabilityShare  = 30.0
	BaselineContent   = 35.0
	BaselineMedia     = 20.0
	BaselineTrust     = 15.0
	LongContentLength = 300
	TopExemplarShare  = 0.2
)

// Proxies are the per-listing composite scores correlated against quality.
type Proxies struct {
	Media   float64
	Trust   float64
	Content float64
}

func ProxiesFor(l models.Listing) Proxies {
	descLength := text.StrippedLength(l.ShortDescription) + text.StrippedLength(l.LongDescription)
	return Proxies{
		Media:   float64(l.ImagesCount) + 2*float64(l.VideosCount),
		Trust:   l.AverageRating() * math.Log1p(float64(l.Reviews())),
		Content: float64(utf8.RuneCountInString(l.Title)) + float64(descLength)/10 + 5*float64(len(pattern.NormalizeTags(l.Tags))),
	}
}

// Importance correlates each proxy with the exemplar scores. Degenerate input
// (constant proxies, a single exemplar) yields the baseline split.
func Importance(exemplars []models.Exemplar) models.WeightImportance {
	scores := make([]float64, len(exemplars))
	media := make([]float64, len(exemplars))
	trust := make([]float64, len(exemplars))
	content := make([]float64, len(exemplars))
	for i, e := range exemplars {
		p := ProxiesFor(e.Listing)
		scores[i] = e.Score
		media[i] = p.Media
		trust[i] = p.Trust
		content[i] = p.Content
	}

	rc := math.Abs(stats.Pearson(content, scores))
	rm := math.Abs(stats.Pearson(media, scores))
	rt := math.Abs(stats.Pearson(trust, scores))
	total := rc + rm + rt
	if !stats.Finite(total) || total < 1e-9 {
		return BaselineImportance()
	}

	return models.WeightImportance{
		Content:     stats.Round(CorrelatedShare*rc/total, 2),
		Media:       stats.Round(CorrelatedShare*rm/total, 2),
		Trust:       stats.Round(CorrelatedShare*rt/total, 2),
		Findability: FindabilityShare,
	}
}

func BaselineImportance() models.WeightImportance {
	return models.WeightImportance{
		Content:     BaselineContent,
		Media:       BaselineMedia,
		Trust:       BaselineTrust,
		Findability: FindabilityShare,
		Baseline:    true,
	}
}

// DataQuality scores completeness of the exemplar data on a 0-100 scale.
func DataQuality(listings []models.Listing) float64 {
	n := len(listings)
	if n == 0 {
		return 0
	}
	var ratings, reviews, media, long int
	for _, l := range listings {
		if l.AverageRating() > 0 {
			ratings++
		}
		if l.Reviews() > 0 {
			reviews++
		}
		if l.ImagesCount > 0 || l.VideosCount > 0 {
			media++
		}
		if text.StrippedLength(l.LongDescription) >= LongContentLength {
			long++
		}
	}
	dq := 50 +
		20*stats.Fraction(ratings, n) +
		15*stats.Fraction(reviews, n) +
		10*stats.Fraction(media, n) +
		5*stats.Fraction(long, n)
	return stats.Round(dq, 2)
}

// ClassifyConfidence maps sample size and data quality onto a level.
func ClassifyConfidence(sampleSize int, dataQuality float64) models.ConfidenceLevel {
	switch {
	case sampleSize >= 30 && dataQuality >= 80:
		return models.ConfidenceHigh
	case sampleSize >= 15 && dataQuality >= 60:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func Confidence(listings []models.Listing) models.RuleConfidence {
	n := len(listings)
	dq := DataQuality(listings)
	level := ClassifyConfidence(n, dq)

	var explanation string
	switch level {
	case models.ConfidenceHigh:
		explanation = fmt.Sprintf("%d exemplars with %.0f%% data quality", n, dq)
	case models.ConfidenceMedium:
		explanation = fmt.Sprintf("%d exemplars with %.0f%% data quality; more samples would tighten benchmarks", n, dq)
	default:
		explanation = fmt.Sprintf("only %d exemplars with %.0f%% data quality; treat benchmarks as indicative", n, dq)
	}

	return models.RuleConfidence{
		Level:       level,
		SampleSize:  n,
		DataQuality: dq,
		Explanation: explanation,
	}
}

// TopExemplars returns the best ceil(20%) of exemplars by score, at least one.
func TopExemplars(exemplars []models.Exemplar) []models.Exemplar {
	if len(exemplars) == 0 {
		return nil
	}
	ranked := make([]models.Exemplar, len(exemplars))
	copy(ranked, exemplars)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Listing.Identity() < ranked[j].Listing.Identity()
	})
	n := int(math.Ceil(float64(len(ranked))*TopExemplarShare - 1e-9))
	if n < 1 {
		n = 1
	}
	return ranked[:n]
}

// SuccessPatterns describes what the top exemplars have in common.
func SuccessPatterns(exemplars []models.Exemplar) []string {
	top := TopExemplars(exemplars)
	if len(top) == 0 {
		return []string{}
	}

	var images, ratings, tags, longs, reviews []float64
	withVideo := 0
	for _, e := range top {
		l := e.Listing
		images = append(images, float64(l.ImagesCount))
		if avg := l.AverageRating(); avg > 0 {
			ratings = append(ratings, avg)
		}
		tags = append(tags, float64(len(pattern.NormalizeTags(l.Tags))))
		longs = append(longs, float64(text.StrippedLength(l.LongDescription)))
		reviews = append(reviews, float64(l.Reviews()))
		if l.VideosCount > 0 {
			withVideo++
		}
	}

	out := []string{}
	if avg := stats.Mean(images); avg >= 6 {
		out = append(out, fmt.Sprintf("Top listings average %.0f+ screenshots", math.Floor(avg)))
	}
	if share := stats.Fraction(withVideo, len(top)); share >= 0.5 {
		out = append(out, fmt.Sprintf("%.0f%% of top listings include a video", share*100))
	}
	if len(ratings) > 0 {
		if avg := stats.Mean(ratings); avg >= 4.5 {
			out = append(out, fmt.Sprintf("Top listings hold a %.1f+ average rating", math.Floor(avg*10)/10))
		}
	}
	if avg := stats.Mean(tags); avg >= 5 {
		out = append(out, fmt.Sprintf("Top listings use %.0f+ tags", math.Floor(avg)))
	}
	if avg := stats.Mean(longs); avg >= 1000 {
		out = append(out, fmt.Sprintf("Top listings write %.0f+ character descriptions", math.Floor(avg)))
	}
	if avg := stats.Mean(reviews); avg >= 50 {
		out = append(out, fmt.Sprintf("Top listings collect %.0f+ reviews", math.Floor(avg)))
	}
	return out
}

// CommonFailures is a fixed list; there is no negative sample to derive it from.
func CommonFailures() []string {
	return []string{
		"Too few screenshots to show the product in use",
		"Short descriptions that skip features and requirements",
		"No recent updates or compatibility notes",
	}
}
