// internal/models/patterns.go
package models

// TermFrequency is one retained row of a frequency table.
type TermFrequency struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

type VocabularyPatterns struct {
	TitleTerms       []TermFrequency `json:"titleTerms"`
	TitleBigrams     []TermFrequency `json:"titleBigrams"`
	DescriptionTerms []TermFrequency `json:"descriptionTerms"`
}

type TagPatterns struct {
	Frequencies  []TermFrequency `json:"frequencies"`
	Cooccurrence []TermFrequency `json:"cooccurrence"` // keyed "tagA|tagB", tagA < tagB
}

// NumericSummary aggregates one per-listing measure.
type NumericSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

type StructurePatterns struct {
	TitleLength          NumericSummary `json:"titleLength"`
	ShortDescLength      NumericSummary `json:"shortDescLength"`
	LongDescLength       NumericSummary `json:"longDescLength"`
	BulletCount          NumericSummary `json:"bulletCount"`
	HasFeaturesRatio     float64        `json:"hasFeaturesRatio"`
	HasRequirementsRatio float64        `json:"hasRequirementsRatio"`
	HasExamplesRatio     float64        `json:"hasExamplesRatio"`
	HasLinksRatio        float64        `json:"hasLinksRatio"`
	HasCTARatio          float64        `json:"hasCtaRatio"`
}

type MediaPatterns struct {
	Images            NumericSummary `json:"images"`
	Videos            NumericSummary `json:"videos"`
	WithVideoFraction float64        `json:"withVideoFraction"`
}

// PricePatterns is zero-valued when no exemplar has a positive price.
type PricePatterns struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

type CategoryPatterns struct {
	Category      string             `json:"category"`
	ExemplarCount int                `json:"exemplarCount"`
	MinSupport    int                `json:"minSupport"`
	Vocabulary    VocabularyPatterns `json:"vocabulary"`
	Tags          TagPatterns        `json:"tags"`
	Structure     StructurePatterns  `json:"structure"`
	Media         MediaPatterns      `json:"media"`
	Price         PricePatterns      `json:"price"`
}

// VocabularyTerms flattens title terms and tags for the grader.
func (p CategoryPatterns) VocabularyTerms() []string {
	out := make([]string, 0, len(p.Vocabulary.TitleTerms)+len(p.Tags.Frequencies))
	for _, t := range p.Vocabulary.TitleTerms {
		out = append(out, t.Term)
	}
	for _, t := range p.Tags.Frequencies {
		out = append(out, t.Term)
	}
	return out
}
