// internal/engine/quality/scorer.go
package quality

import (
	"listing-grader/internal/engine/grader"
	"listing-grader/internal/engine/stats"
	"listing-grader/internal/models"
)

const (
	gradeShare  = 0.8
	ratingShare = 0.2
)

// Grader is the static grading collaborator.
type Grader interface {
	Score(l models.Listing, vocabulary []string, w models.Weights, th models.Thresholds) grader.Result
}

// Scorer turns a static grade plus rating data into one quality score.
type Scorer struct {
	grader Grader
}

func NewScorer(g Grader) *Scorer {
	if g == nil {
		g = grader.NewStatic()
	}
	return &Scorer{grader: g}
}

// Score grades l with the configuration carried by src. The result is in
// [0,100] and rounded to two decimals.
func (s *Scorer) Score(l models.Listing, src models.RuleSource, vocabulary []string) float64 {
	w, th := src.Config()
	grade := float64(s.grader.Score(l, vocabulary, w, th).Score)
	return Blend(grade, l.AverageRating())
}

// Blend mixes a 0..100 grade with a 0..5 average rating. Unrated listings keep
// their grade.
func Blend(grade, avgRating float64) float64 {
	score := grade
	if avgRating > 0 {
		score = gradeShare*grade + ratingShare*(avgRating/5*100)
	}
	return stats.Round(stats.Clamp(score, 0, 100), 2)
}
