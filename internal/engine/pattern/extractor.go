// internal/engine/pattern/extractor.go
package pattern

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"listing-grader/internal/engine/stats"
	"listing-grader/internal/engine/text"
	"listing-grader/internal/models"
)

const (
	DefaultSupportRatio = 0.15
	MaxTableEntries     = 50
)

// Config tunes vocabulary extraction.
type Config struct {
	IgnoreStopWords bool
	SupportRatio    float64 // share of exemplars a term must appear in
}

func DefaultConfig() Config {
	return Config{IgnoreStopWords: true, SupportRatio: DefaultSupportRatio}
}

// Extractor computes per-category patterns from exemplar listings.
type Extractor struct {
	config  Config
	signals *text.SignalMatcher
}

func NewExtractor(config Config) *Extractor {
	if config.SupportRatio <= 0 || config.SupportRatio > 1 {
		config.SupportRatio = DefaultSupportRatio
	}
	return &Extractor{config: config, signals: text.NewSignalMatcher()}
}

// MinSupport is the smallest document frequency a table entry may have.
func MinSupport(exemplarCount int, ratio float64) int {
	n := int(math.Floor(float64(exemplarCount)*ratio + 1e-9))
	if n < 1 {
		return 1
	}
	return n
}

// Extract computes the five pattern groups for one category. The result does
// not depend on the order of exemplars.
func (e *Extractor) Extract(category string, exemplars []models.Listing) models.CategoryPatterns {
	minSupport := MinSupport(len(exemplars), e.config.SupportRatio)
	return models.CategoryPatterns{
		Category:      category,
		ExemplarCount: len(exemplars),
		MinSupport:    minSupport,
		Vocabulary:    e.vocabulary(exemplars, minSupport),
		Tags:          tagPatterns(exemplars, minSupport),
		Structure:     e.structure(exemplars),
		Media:         mediaPatterns(exemplars),
		Price:         pricePatterns(exemplars),
	}
}

func (e *Extractor) vocabulary(exemplars []models.Listing, minSupport int) models.VocabularyPatterns {
	titleDF := make(map[string]int)
	bigramDF := make(map[string]int)
	descDF := make(map[string]int)

	for _, l := range exemplars {
		titleTokens := text.Tokenize(l.Title, e.config.IgnoreStopWords)
		countOnce(titleDF, titleTokens)
		countOnce(bigramDF, text.Bigrams(titleTokens))
		countOnce(descDF, text.Tokenize(text.DescriptionText(l.ShortDescription, l.LongDescription), e.config.IgnoreStopWords))
	}

	return models.VocabularyPatterns{
		TitleTerms:       rank(titleDF, minSupport),
		TitleBigrams:     rank(bigramDF, minSupport),
		DescriptionTerms: rank(descDF, minSupport),
	}
}

func tagPatterns(exemplars []models.Listing, minSupport int) models.TagPatterns {
	freq := make(map[string]int)
	pairs := make(map[string]int)

	for _, l := range exemplars {
		tags := NormalizeTags(l.Tags)
		for _, t := range tags {
			freq[t]++
		}
		// tags are sorted and unique, so i<j yields each unordered pair once as "a|b"
		for i := 0; i < len(tags); i++ {
			for j := i + 1; j < len(tags); j++ {
				pairs[tags[i]+"|"+tags[j]]++
			}
		}
	}

	return models.TagPatterns{
		Frequencies:  rank(freq, minSupport),
		Cooccurrence: rank(pairs, minSupport),
	}
}

// NormalizeTags lowercases, trims, drops empties and dedupes, returning sorted tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (e *Extractor) structure(exemplars []models.Listing) models.StructurePatterns {
	n := len(exemplars)
	titles := make([]float64, 0, n)
	shorts := make([]float64, 0, n)
	longs := make([]float64, 0, n)
	bullets := make([]float64, 0, n)
	var features, requirements, examples, links, cta int

	for _, l := range exemplars {
		short := text.Analyze(l.ShortDescription)
		long := text.Analyze(l.LongDescription)

		titles = append(titles, float64(utf8.RuneCountInString(l.Title)))
		shorts = append(shorts, float64(short.Length))
		longs = append(longs, float64(long.Length))
		bullets = append(bullets, float64(short.Bullets+long.Bullets))

		combined := text.Structure{
			Text:     short.Text + " " + long.Text,
			HasLinks: short.HasLinks || long.HasLinks,
		}
		sig := e.signals.Match(combined)
		if sig.Features {
			features++
		}
		if sig.Requirements {
			requirements++
		}
		if sig.Examples {
			examples++
		}
		if sig.Links {
			links++
		}
		if sig.CTA {
			cta++
		}
	}

	return models.StructurePatterns{
		TitleLength:          stats.Summarize(titles),
		ShortDescLength:      stats.Summarize(shorts),
		LongDescLength:       stats.Summarize(longs),
		BulletCount:          stats.Summarize(bullets),
		HasFeaturesRatio:     stats.Fraction(features, n),
		HasRequirementsRatio: stats.Fraction(requirements, n),
		HasExamplesRatio:     stats.Fraction(examples, n),
		HasLinksRatio:        stats.Fraction(links, n),
		HasCTARatio:          stats.Fraction(cta, n),
	}
}

func mediaPatterns(exemplars []models.Listing) models.MediaPatterns {
	images := make([]float64, 0, len(exemplars))
	videos := make([]float64, 0, len(exemplars))
	withVideo := 0
	for _, l := range exemplars {
		images = append(images, float64(l.ImagesCount))
		videos = append(videos, float64(l.VideosCount))
		if l.VideosCount >= 1 {
			withVideo++
		}
	}
	return models.MediaPatterns{
		Images:            stats.Summarize(images),
		Videos:            stats.Summarize(videos),
		WithVideoFraction: stats.Fraction(withVideo, len(exemplars)),
	}
}

func pricePatterns(exemplars []models.Listing) models.PricePatterns {
	prices := PositivePrices(exemplars)
	if len(prices) == 0 {
		return models.PricePatterns{}
	}
	s := stats.Summarize(prices)
	return models.PricePatterns{
		Count:  len(prices),
		Min:    s.Min,
		Max:    s.Max,
		Mean:   s.Mean,
		Median: s.Median,
		Q1:     stats.PercentileOr(prices, 25, 0),
		Q3:     stats.PercentileOr(prices, 75, 0),
	}
}

// PositivePrices returns every price above zero.
func PositivePrices(exemplars []models.Listing) []float64 {
	out := make([]float64, 0, len(exemplars))
	for _, l := range exemplars {
		if p := l.PriceValue(); p > 0 {
			out = append(out, p)
		}
	}
	return out
}

// countOnce adds one to every distinct term, giving document frequency.
func countOnce(df map[string]int, terms []string) {
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		df[t]++
	}
}

// rank keeps entries with frequency >= minSupport, ordered by frequency
// descending then term ascending, capped at MaxTableEntries.
func rank(df map[string]int, minSupport int) []models.TermFrequency {
	out := make([]models.TermFrequency, 0, len(df))
	for term, f := range df {
		if f >= minSupport {
			out = append(out, models.TermFrequency{Term: term, Frequency: f})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > MaxTableEntries {
		out = out[:MaxTableEntries]
	}
	return out
}
