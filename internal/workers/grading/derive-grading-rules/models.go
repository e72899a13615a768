// internal/workers/grading/derive-grading-rules/models.go
package derivegradingrules

import "listing-grader/internal/models"

// Input is the output of select-exemplars: exemplars grouped by category.
// Categories narrows the work to a subset; empty means all.
type Input struct {
	Exemplars  models.ExemplarSet   `json:"exemplars"`
	Categories []string             `json:"categories,omitempty"`
	Fallback   *models.StaticConfig `json:"fallback,omitempty"`
}

type Output struct {
	Patterns         map[string]models.CategoryPatterns     `json:"patterns"`
	Rules            map[string]models.DynamicCategoryRules `json:"rules"`
	Vocabulary       map[string][]string                    `json:"vocabulary"`
	FailedCategories []string                               `json:"failedCategories,omitempty"`
}
