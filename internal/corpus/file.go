// internal/corpus/file.go
package corpus

import (
	"context"
	"encoding/json"
	"os"

	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/models"
)

// FileLoader reads a JSON corpus and an optional JSON array of best sellers.
type FileLoader struct {
	Path            string
	BestSellersPath string
	Validate        bool
	logger          logger.Logger
}

func NewFileLoader(path, bestSellersPath string, validate bool, log logger.Logger) *FileLoader {
	return &FileLoader{
		Path:            path,
		BestSellersPath: bestSellersPath,
		Validate:        validate,
		logger:          logger.OrNop(log).WithFields(map[string]interface{}{"loader": "file"}),
	}
}

func (f *FileLoader) Load(ctx context.Context) (*Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, apperrors.NewCorpusLoadFailedError(f.Path, err)
	}
	records, bestSellers, err := splitDocument(data)
	if err != nil {
		return nil, apperrors.NewCorpusValidationFailedError(err.Error())
	}

	if f.BestSellersPath != "" {
		raw, err := os.ReadFile(f.BestSellersPath)
		if err != nil {
			return nil, apperrors.NewCorpusLoadFailedError(f.BestSellersPath, err)
		}
		var refs []models.BestSellerRef
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, apperrors.NewCorpusValidationFailedError("best sellers: " + err.Error())
		}
		bestSellers = append(bestSellers, refs...)
	}

	listings, skipped := decodeListings(records, f.Validate, f.logger)
	f.logger.Info("corpus loaded", map[string]interface{}{
		"path":        f.Path,
		"listings":    len(listings),
		"skipped":     skipped,
		"bestSellers": len(bestSellers),
	})

	return &Corpus{
		Source:      "file:" + f.Path,
		Listings:    listings,
		BestSellers: bestSellers,
		Skipped:     skipped,
	}, nil
}
