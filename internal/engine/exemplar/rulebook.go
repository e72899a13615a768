// internal/engine/exemplar/rulebook.go
package exemplar

import (
	"sort"
	"strings"

	"listing-grader/internal/models"
)

// Rulebook is the read-only grading configuration for one pass: the previous
// pass's dynamic rules and vocabularies plus the shared fallback.
type Rulebook struct {
	Rules      map[string]*models.DynamicCategoryRules
	Vocabulary map[string][]string
	Fallback   models.StaticConfig

	categories []string
}

// NewRulebook builds a rulebook. rules and vocabulary may be nil for a first pass.
func NewRulebook(fallback models.StaticConfig, rules map[string]*models.DynamicCategoryRules, vocabulary map[string][]string) *Rulebook {
	rb := &Rulebook{
		Rules:      rules,
		Vocabulary: vocabulary,
		Fallback:   fallback.Clone(),
	}
	for cat, r := range rules {
		if r == nil {
			continue
		}
		rb.categories = append(rb.categories, cat)
	}
	sort.Strings(rb.categories)
	return rb
}

// Resolve picks the rule source and vocabulary for a listing category.
func (rb *Rulebook) Resolve(category string) (models.RuleSource, []string) {
	if rb == nil {
		return models.FallbackSource(models.DefaultStaticConfig()), nil
	}
	matched, ok := MatchCategory(category, rb.categories)
	if !ok {
		return models.FallbackSource(rb.Fallback), nil
	}
	return models.DynamicSource(matched, rb.Rules[matched]), rb.Vocabulary[matched]
}

// MatchCategory finds the candidate for category: an exact match wins,
// otherwise the longest candidate that contains or is contained in category,
// ties going to the lexicographically smallest. candidates must be sorted.
func MatchCategory(category string, candidates []string) (string, bool) {
	if category == "" {
		return "", false
	}
	i := sort.SearchStrings(candidates, category)
	if i < len(candidates) && candidates[i] == category {
		return category, true
	}

	best := ""
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		if !strings.Contains(category, cand) && !strings.Contains(cand, category) {
			continue
		}
		if len(cand) > len(best) {
			best = cand
		}
	}
	return best, best != ""
}
