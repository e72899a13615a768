// internal/engine/grader/static_test.go
package grader

import (
	"strings"
	"testing"
	"time"

	"listing-grader/internal/models"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func price(v float64) *float64 { return &v }

func completeListing() models.Listing {
	return models.Listing{
		ID:               "asset-1",
		Title:            "Ultimate Inventory System for Unity Games",
		ShortDescription: strings.Repeat("a", 100),
		LongDescription:  "<p>" + strings.Repeat("word ", 80) + "</p>",
		Tags:             []string{"inventory", "ui", "rpg", "items", "crafting"},
		Category:         "Tools/Utilities",
		Price:            price(25),
		ImagesCount:      6,
		VideosCount:      1,
		Rating:           []models.RatingCount{{Stars: 5, Count: 10}},
		ReviewsCount:     10,
		LastUpdate:       models.NewDate(fixedNow.AddDate(0, 0, -10)),
	}
}

func TestStatic_Score(t *testing.T) {
	g := NewStatic(WithClock(func() time.Time { return fixedNow }))
	w := models.DefaultWeights()
	th := models.DefaultThresholds()

	tests := []struct {
		name           string
		listing        models.Listing
		expectedScore  int
		expectedLetter string
	}{
		{
			name:           "complete listing",
			listing:        completeListing(),
			expectedScore:  100,
			expectedLetter: "A",
		},
		{
			name:           "bare listing",
			listing:        models.Listing{ID: "x", Title: "X", Category: "Tools"},
			expectedScore:  1,
			expectedLetter: "F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Score(tt.listing, nil, w, th)
			assert.Equal(t, tt.expectedScore, res.Score)
			assert.Equal(t, tt.expectedLetter, res.Letter)
			assert.Len(t, res.Breakdown, 10)
		})
	}
}

func TestStatic_Score_ZeroWeights(t *testing.T) {
	g := NewStatic()
	res := g.Score(completeListing(), nil, models.Weights{}, models.DefaultThresholds())
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, "F", res.Letter)
}

func TestStatic_Score_VocabularyBonus(t *testing.T) {
	g := NewStatic(WithClock(func() time.Time { return fixedNow }))
	l := completeListing()

	withVocab := g.Score(l, []string{"ultimate", "inventory", "system", "unity", "games"}, models.DefaultWeights(), models.DefaultThresholds())
	offVocab := g.Score(l, []string{"shader", "water"}, models.DefaultWeights(), models.DefaultThresholds())

	assert.InDelta(t, 1.0, withVocab.Breakdown["title"].Score, 1e-9)
	assert.InDelta(t, 0.8, offVocab.Breakdown["title"].Score, 1e-9)
	assert.Greater(t, withVocab.Score, offVocab.Score)
}

func TestStatic_Freshness(t *testing.T) {
	g := NewStatic(WithClock(func() time.Time { return fixedNow }))
	th := models.DefaultThresholds()

	l := completeListing()
	l.LastUpdate = models.NewDate(fixedNow.AddDate(0, 0, -200))
	c := g.freshness(l, th)
	assert.InDelta(t, 1-0.5*(200-91.25)/(365-91.25), c.Score, 1e-9)

	l.LastUpdate = models.NewDate(fixedNow.AddDate(-2, 0, 0))
	assert.Equal(t, 0.0, g.freshness(l, th).Score)

	l.LastUpdate = nil
	assert.Equal(t, 0.0, g.freshness(l, th).Score)
}

func TestLetter(t *testing.T) {
	cases := map[int]string{100: "A", 90: "A", 89: "B", 80: "B", 75: "C", 60: "D", 59: "F", 0: "F"}
	for score, letter := range cases {
		assert.Equal(t, letter, Letter(score), "score %d", score)
	}
}

func TestRangeScore(t *testing.T) {
	assert.Equal(t, 0.0, rangeScore(0, 20, 70))
	assert.Equal(t, 0.5, rangeScore(10, 20, 70))
	assert.Equal(t, 1.0, rangeScore(45, 20, 70))
	assert.InDelta(t, 1-35.0/70.0, rangeScore(105, 20, 70), 1e-9)
	assert.Equal(t, 0.0, rangeScore(200, 20, 70))
}
