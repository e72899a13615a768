// internal/workers/grading/select-exemplars/models.go
package selectexemplars

import "listing-grader/internal/models"

// Input carries an inline corpus or, when Listings is empty, defers to the
// configured corpus source. Rules and Vocabulary come from a previous pass.
type Input struct {
	Listings    []models.Listing                       `json:"listings,omitempty"`
	BestSellers []models.BestSellerRef                 `json:"bestSellers,omitempty"`
	TopN        *int                                   `json:"topN,omitempty"`
	TopPercent  *float64                               `json:"topPercent,omitempty"`
	Rules       map[string]models.DynamicCategoryRules `json:"rules,omitempty"`
	Vocabulary  map[string][]string                    `json:"vocabulary,omitempty"`
}

type Output struct {
	Exemplars         models.ExemplarSet   `json:"exemplars"`
	Stats             models.ExemplarStats `json:"stats"`
	SelectionCriteria string               `json:"selectionCriteria"`
}
