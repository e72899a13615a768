// internal/models/artifacts.go
package models

import "time"

// Exemplar is one selected listing with its score for the current pass.
type Exemplar struct {
	Listing      Listing `json:"listing"`
	Score        float64 `json:"score"`
	IsBestSeller bool    `json:"isBestSeller"`
}

// ExemplarSet maps category to exemplars ordered by descending score,
// with force-included best sellers appended at the end.
type ExemplarSet map[string][]Exemplar

// Identities flattens the identity of every exemplar across all categories.
func (s ExemplarSet) Identities() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, exemplars := range s {
		for _, e := range exemplars {
			ids[e.Listing.Identity()] = struct{}{}
		}
	}
	return ids
}

// Total is the number of exemplars across all categories.
func (s ExemplarSet) Total() int {
	n := 0
	for _, exemplars := range s {
		n += len(exemplars)
	}
	return n
}

// BestSellerTotal counts exemplars flagged as best sellers.
func (s ExemplarSet) BestSellerTotal() int {
	n := 0
	for _, exemplars := range s {
		for _, e := range exemplars {
			if e.IsBestSeller {
				n++
			}
		}
	}
	return n
}

// ConvergenceState is threaded through the pass loop, one update per pass.
type ConvergenceState struct {
	Pass                int                 `json:"pass"`
	ExemplarIDs         map[string]struct{} `json:"-"`
	PreviousExemplarIDs map[string]struct{} `json:"-"`
	StabilityMetric     float64             `json:"stabilityMetric"`
	Converged           bool                `json:"converged"`
}

// RunOutcome is the orchestrator's terminal state.
type RunOutcome string

const (
	OutcomeConverged RunOutcome = "converged"
	OutcomeExhausted RunOutcome = "exhausted"
)

type ExemplarStats struct {
	TotalCategories  int     `json:"totalCategories"`
	TotalExemplars   int     `json:"totalExemplars"`
	TotalBestSellers int     `json:"totalBestSellers"`
	AverageScore     float64 `json:"averageScore"`
}

type ConfidenceDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type GradingRulesStats struct {
	TotalCategories        int                    `json:"totalCategories"`
	FailedCategories       []string               `json:"failedCategories,omitempty"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidenceDistribution"`
}

type ExemplarChanges struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

type PassResult struct {
	Pass              int               `json:"pass"`
	ExemplarStats     ExemplarStats     `json:"exemplarStats"`
	GradingRulesStats GradingRulesStats `json:"gradingRulesStats"`
	ExemplarChanges   *ExemplarChanges  `json:"exemplarChanges,omitempty"`
	StabilityMetric   *float64          `json:"stabilityMetric,omitempty"`
}

// ConvergenceSummary is the orchestrator's convergence report.
type ConvergenceSummary struct {
	RunID                string       `json:"runId"`
	Passes               int          `json:"passes"`
	Converged            bool         `json:"converged"`
	Outcome              RunOutcome   `json:"outcome"`
	ConvergenceMetric    float64      `json:"convergenceMetric"`
	ConvergenceThreshold float64      `json:"convergenceThreshold"`
	PassResults          []PassResult `json:"passResults"`
}

type ExemplarsMetadata struct {
	RunID               string        `json:"runId"`
	CorpusSize          int           `json:"corpusSize"`
	BestSellersProvided int           `json:"bestSellersProvided"`
	TopN                *int          `json:"topN,omitempty"`
	TopPercent          *float64      `json:"topPercent,omitempty"`
	SelectionCriteria   string        `json:"selectionCriteria"`
	Pass                int           `json:"pass"`
	Stats               ExemplarStats `json:"stats"`
}

// ExemplarsArtifact is the exemplars.json document.
type ExemplarsArtifact struct {
	Exemplars map[string][]Listing        `json:"exemplars"`
	Patterns  map[string]CategoryPatterns `json:"patterns"`
	Metadata  ExemplarsMetadata           `json:"metadata"`
}

type GradingRulesMetadata struct {
	RunID                  string                 `json:"runId"`
	GeneratedAt            time.Time              `json:"generatedAt"`
	TotalCategories        int                    `json:"totalCategories"`
	TotalExemplars         int                    `json:"totalExemplars"`
	BestSellersCount       int                    `json:"bestSellersCount"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidenceDistribution"`
}

// GradingRulesArtifact is the grading-rules.json document.
type GradingRulesArtifact struct {
	Rules         map[string]DynamicCategoryRules `json:"rules"`
	Metadata      GradingRulesMetadata            `json:"metadata"`
	FallbackRules StaticConfig                    `json:"fallbackRules"`
}

type CategoryVocabulary struct {
	TitleTerms       []string `json:"titleTerms"`
	DescriptionTerms []string `json:"descriptionTerms"`
	Tags             []string `json:"tags"`
	TagPairs         []string `json:"tagPairs"`
}

// VocabularySummary is built once from the last pass's exemplars.
type VocabularySummary struct {
	RunID      string                        `json:"runId"`
	Categories map[string]CategoryVocabulary `json:"categories"`
}

type PlaybookEntry struct {
	ExemplarCount   int                `json:"exemplarCount"`
	Confidence      ConfidenceLevel    `json:"confidence"`
	SuccessPatterns []string           `json:"successPatterns"`
	CommonFailures  []string           `json:"commonFailures"`
	Targets         map[string]float64 `json:"targets"`
	TopExemplars    []string           `json:"topExemplars"`
}

// Playbook is the narrative per-category guidance built once after the loop.
type Playbook struct {
	RunID      string                   `json:"runId"`
	Categories map[string]PlaybookEntry `json:"categories"`
}
