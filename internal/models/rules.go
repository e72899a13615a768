// internal/models/rules.go
package models

import "time"

// Weights are the relative importance of each graded component.
type Weights struct {
	Title            float64 `json:"title" mapstructure:"title"`
	ShortDescription float64 `json:"shortDescription" mapstructure:"short_description"`
	LongDescription  float64 `json:"longDescription" mapstructure:"long_description"`
	Tags             float64 `json:"tags" mapstructure:"tags"`
	Images           float64 `json:"images" mapstructure:"images"`
	Videos           float64 `json:"videos" mapstructure:"videos"`
	Rating           float64 `json:"rating" mapstructure:"rating"`
	Reviews          float64 `json:"reviews" mapstructure:"reviews"`
	Freshness        float64 `json:"freshness" mapstructure:"freshness"`
	Pricing          float64 `json:"pricing" mapstructure:"pricing"`
}

// Weight ceilings applied after every adjustment.
const (
	MaxImagesWeight  = 12.0
	MaxVideosWeight  = 10.0
	MaxRatingWeight  = 8.0
	MaxReviewsWeight = 8.0
)

// Total is the sum of all component weights.
func (w Weights) Total() float64 {
	return w.Title + w.ShortDescription + w.LongDescription + w.Tags +
		w.Images + w.Videos + w.Rating + w.Reviews + w.Freshness + w.Pricing
}

// Capped returns a copy with the media and trust ceilings enforced.
func (w Weights) Capped() Weights {
	w.Images = minFloat(w.Images, MaxImagesWeight)
	w.Videos = minFloat(w.Videos, MaxVideosWeight)
	w.Rating = minFloat(w.Rating, MaxRatingWeight)
	w.Reviews = minFloat(w.Reviews, MaxReviewsWeight)
	return w
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Thresholds are the pass/fail bounds the grader measures listings against.
type Thresholds struct {
	TitleMinLength     int     `json:"titleMinLength" mapstructure:"title_min_length"`
	TitleMaxLength     int     `json:"titleMaxLength" mapstructure:"title_max_length"`
	ShortDescMinLength int     `json:"shortDescMinLength" mapstructure:"short_desc_min_length"`
	ShortDescMaxLength int     `json:"shortDescMaxLength" mapstructure:"short_desc_max_length"`
	LongDescMinLength  int     `json:"longDescMinLength" mapstructure:"long_desc_min_length"`
	MinTags            int     `json:"minTags" mapstructure:"min_tags"`
	MaxTags            int     `json:"maxTags" mapstructure:"max_tags"`
	MinImages          int     `json:"minImages" mapstructure:"min_images"`
	MinRating          float64 `json:"minRating" mapstructure:"min_rating"`
	MinReviews         int     `json:"minReviews" mapstructure:"min_reviews"`
	FreshnessMaxDays   int     `json:"freshnessMaxDays" mapstructure:"freshness_max_days"`
}

// StaticConfig is the shared fallback configuration. It is passed by value and
// never mutated; Clone exists for readability at call sites that adjust it.
type StaticConfig struct {
	Weights    Weights    `json:"weights" mapstructure:"weights"`
	Thresholds Thresholds `json:"thresholds" mapstructure:"thresholds"`
}

func (s StaticConfig) Clone() StaticConfig {
	return StaticConfig{Weights: s.Weights, Thresholds: s.Thresholds}
}

// DefaultWeights returns the fallback component weights.
func DefaultWeights() Weights {
	return Weights{
		Title:            12,
		ShortDescription: 10,
		LongDescription:  16,
		Tags:             10,
		Images:           10,
		Videos:           6,
		Rating:           6,
		Reviews:          6,
		Freshness:        8,
		Pricing:          4,
	}
}

// DefaultThresholds returns the fallback thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleMinLength:     20,
		TitleMaxLength:     70,
		ShortDescMinLength: 60,
		ShortDescMaxLength: 200,
		LongDescMinLength:  300,
		MinTags:            3,
		MaxTags:            15,
		MinImages:          3,
		MinRating:          3.8,
		MinReviews:         5,
		FreshnessMaxDays:   365,
	}
}

func DefaultStaticConfig() StaticConfig {
	return StaticConfig{Weights: DefaultWeights(), Thresholds: DefaultThresholds()}
}

// RuleSourceKind tags which configuration a category is graded with.
type RuleSourceKind string

const (
	RuleSourceDynamic  RuleSourceKind = "dynamic"
	RuleSourceFallback RuleSourceKind = "fallback"
)

// RuleSource is resolved once per (category, pass) and handed to the grader.
type RuleSource struct {
	Kind     RuleSourceKind
	Category string // matched rule category, empty for fallback
	Rules    *DynamicCategoryRules
	Static   StaticConfig
}

func DynamicSource(category string, rules *DynamicCategoryRules) RuleSource {
	return RuleSource{Kind: RuleSourceDynamic, Category: category, Rules: rules}
}

func FallbackSource(static StaticConfig) RuleSource {
	return RuleSource{Kind: RuleSourceFallback, Static: static}
}

// Config returns the weights and thresholds carried by the source.
func (r RuleSource) Config() (Weights, Thresholds) {
	if r.Kind == RuleSourceDynamic && r.Rules != nil {
		return r.Rules.Weights, r.Rules.Thresholds
	}
	return r.Static.Weights, r.Static.Thresholds
}

// Band is a percentile-anchored target for a count-like metric.
type Band struct {
	Minimum   float64 `json:"minimum"`
	Target    float64 `json:"target"`
	Excellent float64 `json:"excellent"`
}

// Range is a percentile-anchored target for length and price metrics.
type Range struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Target float64 `json:"target"`
}

// FreshnessBand is measured in days since last update; lower is better.
type FreshnessBand struct {
	ExcellentDays float64 `json:"excellentDays"`
	TargetDays    float64 `json:"targetDays"`
	MaximumDays   float64 `json:"maximumDays"`
}

type CategoryBenchmarks struct {
	Rating          Band          `json:"rating"`
	Reviews         Band          `json:"reviews"`
	Images          Band          `json:"images"`
	Videos          Band          `json:"videos"`
	TagCount        Band          `json:"tagCount"`
	TitleLength     Range         `json:"titleLength"`
	ShortDescLength Range         `json:"shortDescLength"`
	LongDescLength  Range         `json:"longDescLength"`
	Price           Range         `json:"price"`
	Freshness       FreshnessBand `json:"freshness"`
}

type WeightImportance struct {
	Content     float64 `json:"content"`
	Media       float64 `json:"media"`
	Trust       float64 `json:"trust"`
	Findability float64 `json:"findability"`
	Baseline    bool    `json:"baseline"`
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

type RuleConfidence struct {
	Level       ConfidenceLevel `json:"level"`
	SampleSize  int             `json:"sampleSize"`
	DataQuality float64         `json:"dataQuality"`
	Explanation string          `json:"explanation"`
}

type RuleMetadata struct {
	GeneratedAt        time.Time `json:"generatedAt"`
	ExemplarCount      int       `json:"exemplarCount"`
	BestSellerCount    int       `json:"bestSellerCount"`
	BestSellerFraction float64   `json:"bestSellerFraction"`
	Source             string    `json:"source"`
	Adjustments        []string  `json:"adjustments,omitempty"`
}

// DynamicCategoryRules is emitted once per category per pass and never mutated afterwards.
type DynamicCategoryRules struct {
	Category         string             `json:"category"`
	Weights          Weights            `json:"weights"`
	Thresholds       Thresholds         `json:"thresholds"`
	Benchmarks       CategoryBenchmarks `json:"benchmarks"`
	WeightImportance WeightImportance   `json:"weightImportance"`
	Confidence       RuleConfidence     `json:"confidence"`
	SuccessPatterns  []string           `json:"successPatterns"`
	CommonFailures   []string           `json:"commonFailures"`
	Metadata         RuleMetadata       `json:"metadata"`
}
