// internal/engine/exemplar/selector.go
package exemplar

import (
	"context"
	"fmt"
	"sort"

	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/engine/quality"
	"listing-grader/internal/models"
)

// Selector picks the best listings of every category.
type Selector struct {
	scorer *quality.Scorer
	logger logger.Logger
}

func NewSelector(scorer *quality.Scorer, log logger.Logger) *Selector {
	if scorer == nil {
		scorer = quality.NewScorer(nil)
	}
	return &Selector{
		scorer: scorer,
		logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "exemplar-selector"}),
	}
}

type scored struct {
	listing models.Listing
	score   float64
}

// Select ranks every valid listing of each category with the configuration the
// rulebook resolves for it, keeps the policy's share and appends any best
// seller that missed the cut. The result depends only on the inputs.
func (s *Selector) Select(ctx context.Context, corpus []models.Listing, policy Policy, bestSellers []models.BestSellerRef, book *Rulebook) (models.ExemplarSet, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, apperrors.NewEmptyCorpusError("corpus is empty")
	}

	valid := FilterValid(corpus, s.logger)
	if len(valid) == 0 {
		return nil, apperrors.NewEmptyCorpusError(fmt.Sprintf("0 of %d listings are valid", len(corpus)))
	}
	refs := ValidBestSellers(bestSellers, s.logger)

	byCategory := Partition(valid)
	categories := SortedCategories(byCategory)

	result := make(models.ExemplarSet, len(categories))
	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		listings := byCategory[cat]
		src, vocab := book.Resolve(cat)

		ranked := make([]scored, len(listings))
		for i, l := range listings {
			ranked[i] = scored{listing: l, score: s.scorer.Score(l, src, vocab)}
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			if ranked[i].listing.ID != ranked[j].listing.ID {
				return ranked[i].listing.ID < ranked[j].listing.ID
			}
			return ranked[i].listing.URL < ranked[j].listing.URL
		})

		selected := selectWithBestSellers(ranked, policy.Size(len(ranked)), refs)
		if len(selected) == 0 {
			continue
		}
		result[cat] = selected

		s.logger.Debug("category exemplars selected", map[string]interface{}{
			"category":   cat,
			"source":     string(src.Kind),
			"candidates": len(listings),
			"selected":   len(selected),
		})
	}

	return result, nil
}

func selectWithBestSellers(ranked []scored, size int, refs []models.BestSellerRef) []models.Exemplar {
	out := make([]models.Exemplar, 0, size)
	taken := make(map[int]bool, size)
	for i := 0; i < size && i < len(ranked); i++ {
		out = append(out, models.Exemplar{
			Listing:      ranked[i].listing,
			Score:        ranked[i].score,
			IsBestSeller: matchesAny(ranked[i].listing, refs),
		})
		taken[i] = true
	}

	for _, ref := range refs {
		for i, r := range ranked {
			if taken[i] || !ref.Matches(r.listing) {
				continue
			}
			out = append(out, models.Exemplar{Listing: r.listing, Score: r.score, IsBestSeller: true})
			taken[i] = true
		}
	}
	return out
}

func matchesAny(l models.Listing, refs []models.BestSellerRef) bool {
	for _, ref := range refs {
		if ref.Matches(l) {
			return true
		}
	}
	return false
}

// FilterValid drops listings missing identity, title or category.
func FilterValid(corpus []models.Listing, log logger.Logger) []models.Listing {
	out := make([]models.Listing, 0, len(corpus))
	for i, l := range corpus {
		if missing := l.Validate(); len(missing) > 0 {
			log.Debug("skipping invalid listing", map[string]interface{}{
				"index":   i,
				"listing": l.Identity(),
				"error":   apperrors.NewInvalidListingError(l.Identity(), missing).Details,
			})
			continue
		}
		out = append(out, l)
	}
	return out
}

// ValidBestSellers drops entries that carry neither id nor url.
func ValidBestSellers(refs []models.BestSellerRef, log logger.Logger) []models.BestSellerRef {
	out := make([]models.BestSellerRef, 0, len(refs))
	for i, ref := range refs {
		if !ref.Valid() {
			log.Warn("skipping malformed best-seller entry", map[string]interface{}{
				"error": apperrors.NewInvalidBestSellerError(i, ref.Title).Details,
			})
			continue
		}
		out = append(out, ref)
	}
	return out
}

// Partition groups listings by verbatim category, keeping input order.
func Partition(listings []models.Listing) map[string][]models.Listing {
	out := make(map[string][]models.Listing)
	for _, l := range listings {
		out[l.Category] = append(out[l.Category], l)
	}
	return out
}

func SortedCategories[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
