// internal/engine/grader/static.go
package grader

import (
	"math"
	"time"
	"unicode/utf8"

	"listing-grader/internal/engine/text"
	"listing-grader/internal/models"
)

// vocabularyShare is the part of the title component earned by using
// category vocabulary, when a vocabulary is supplied.
const vocabularyShare = 0.2

// Component is one graded dimension of a listing.
type Component struct {
	Score  float64 `json:"score"` // 0..1
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// Result is the static grade of one listing.
type Result struct {
	Score     int                  `json:"score"` // 0..100
	Letter    string               `json:"letter"`
	Breakdown map[string]Component `json:"breakdown"`
}

// Static is the heuristic fallback grader. It is safe for concurrent use.
type Static struct {
	now func() time.Time
}

type Option func(*Static)

// WithClock fixes the reference time used for freshness.
func WithClock(now func() time.Time) Option {
	return func(s *Static) {
		s.now = now
	}
}

func NewStatic(opts ...Option) *Static {
	s := &Static{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score grades l against the given weights and thresholds. vocabulary may be
// nil, in which case the title is graded on length alone.
func (g *Static) Score(l models.Listing, vocabulary []string, w models.Weights, th models.Thresholds) Result {
	titleLen := float64(utf8.RuneCountInString(l.Title))
	shortLen := float64(text.StrippedLength(l.ShortDescription))
	longLen := float64(text.StrippedLength(l.LongDescription))
	tags := float64(len(l.Tags))
	avgRating := l.AverageRating()
	reviews := float64(l.Reviews())

	title := rangeScore(titleLen, float64(th.TitleMinLength), float64(th.TitleMaxLength))
	if len(vocabulary) > 0 {
		title = (1-vocabularyShare)*title + vocabularyShare*vocabularyCoverage(l.Title, vocabulary)
	}

	fresh := g.freshness(l, th)
	fresh.Weight = w.Freshness

	components := []struct {
		name string
		c    Component
	}{
		{"title", Component{Score: title, Weight: w.Title, Value: titleLen}},
		{"shortDescription", Component{Score: rangeScore(shortLen, float64(th.ShortDescMinLength), float64(th.ShortDescMaxLength)), Weight: w.ShortDescription, Value: shortLen}},
		{"longDescription", Component{Score: ratio(longLen, float64(th.LongDescMinLength)), Weight: w.LongDescription, Value: longLen}},
		{"tags", Component{Score: rangeScore(tags, float64(th.MinTags), float64(th.MaxTags)), Weight: w.Tags, Value: tags}},
		{"images", Component{Score: ratio(float64(l.ImagesCount), float64(th.MinImages)), Weight: w.Images, Value: float64(l.ImagesCount)}},
		{"videos", Component{Score: presence(l.VideosCount > 0), Weight: w.Videos, Value: float64(l.VideosCount)}},
		{"rating", Component{Score: ratio(avgRating, th.MinRating), Weight: w.Rating, Value: avgRating}},
		{"reviews", Component{Score: ratio(reviews, float64(th.MinReviews)), Weight: w.Reviews, Value: reviews}},
		{"freshness", fresh},
		{"pricing", Component{Score: presence(l.Price != nil), Weight: w.Pricing, Value: l.PriceValue()}},
	}

	// summed in a fixed order so equal inputs always round the same way
	breakdown := make(map[string]Component, len(components))
	var weighted, total float64
	for _, comp := range components {
		breakdown[comp.name] = comp.c
		weighted += comp.c.Weight * comp.c.Score
		total += comp.c.Weight
	}

	score := 0
	if total > 0 {
		score = int(math.Round(100 * weighted / total))
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{Score: score, Letter: Letter(score), Breakdown: breakdown}
}

func (g *Static) freshness(l models.Listing, th models.Thresholds) Component {
	days, ok := l.DaysSinceUpdate(g.now())
	if !ok {
		return Component{}
	}
	maxDays := float64(th.FreshnessMaxDays)
	if maxDays <= 0 {
		return Component{Score: 1, Value: days}
	}
	// full marks for the first quarter of the window, then a linear slide to 0.5
	quarter := maxDays / 4
	var s float64
	switch {
	case days <= quarter:
		s = 1
	case days <= maxDays:
		s = 1 - 0.5*(days-quarter)/(maxDays-quarter)
	default:
		s = 0
	}
	return Component{Score: s, Value: days}
}

// Letter maps a 0..100 score to a letter grade.
func Letter(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// rangeScore is 1 inside [lo,hi], proportional below lo and decaying above hi.
func rangeScore(v, lo, hi float64) float64 {
	if v <= 0 {
		return 0
	}
	if lo > 0 && v < lo {
		return v / lo
	}
	if hi > 0 && v > hi {
		return math.Max(0, 1-(v-hi)/hi)
	}
	return 1
}

func ratio(v, target float64) float64 {
	if target <= 0 {
		return presence(v > 0)
	}
	return math.Min(1, math.Max(0, v/target))
}

func presence(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func vocabularyCoverage(title string, vocabulary []string) float64 {
	tokens := text.Tokenize(title, true)
	if len(tokens) == 0 {
		return 0
	}
	vocab := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		vocab[v] = struct{}{}
	}
	hits := 0
	for _, tok := range tokens {
		if _, ok := vocab[tok]; ok {
			hits++
		}
	}
	return math.Min(1, float64(hits)/float64(len(tokens)))
}
