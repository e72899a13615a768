// internal/engine/convergence/derived.go
package convergence

import (
	"listing-grader/internal/engine/rules"
	"listing-grader/internal/models"
)

// PlaybookExemplars is how many top exemplar titles each playbook entry cites.
const PlaybookExemplars = 5

// BuildVocabulary flattens each category's ranked tables into term lists.
func BuildVocabulary(runID string, patterns map[string]models.CategoryPatterns) models.VocabularySummary {
	categories := make(map[string]models.CategoryVocabulary, len(patterns))
	for category, p := range patterns {
		categories[category] = models.CategoryVocabulary{
			TitleTerms:       terms(p.Vocabulary.TitleTerms),
			DescriptionTerms: terms(p.Vocabulary.DescriptionTerms),
			Tags:             terms(p.Tags.Frequencies),
			TagPairs:         terms(p.Tags.Cooccurrence),
		}
	}
	return models.VocabularySummary{RunID: runID, Categories: categories}
}

// BuildPlaybook summarizes, per category with rules, what good listings do.
func BuildPlaybook(runID string, set models.ExemplarSet, rs map[string]models.DynamicCategoryRules) models.Playbook {
	categories := make(map[string]models.PlaybookEntry, len(rs))
	for category, r := range rs {
		top := rules.TopExemplars(set[category])
		if len(top) > PlaybookExemplars {
			top = top[:PlaybookExemplars]
		}
		titles := make([]string, len(top))
		for i, e := range top {
			titles[i] = e.Listing.Title
		}

		categories[category] = models.PlaybookEntry{
			ExemplarCount:   r.Metadata.ExemplarCount,
			Confidence:      r.Confidence.Level,
			SuccessPatterns: r.SuccessPatterns,
			CommonFailures:  r.CommonFailures,
			Targets:         targets(r.Benchmarks),
			TopExemplars:    titles,
		}
	}
	return models.Playbook{RunID: runID, Categories: categories}
}

func targets(b models.CategoryBenchmarks) map[string]float64 {
	return map[string]float64{
		"rating":          b.Rating.Target,
		"reviews":         b.Reviews.Target,
		"images":          b.Images.Target,
		"videos":          b.Videos.Target,
		"tags":            b.TagCount.Target,
		"titleLength":     b.TitleLength.Target,
		"shortDescLength": b.ShortDescLength.Target,
		"longDescLength":  b.LongDescLength.Target,
		"price":           b.Price.Target,
		"freshnessDays":   b.Freshness.TargetDays,
	}
}

func terms(tfs []models.TermFrequency) []string {
	out := make([]string, len(tfs))
	for i, tf := range tfs {
		out[i] = tf.Term
	}
	return out
}
