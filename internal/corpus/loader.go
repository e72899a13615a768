// internal/corpus/loader.go
package corpus

import (
	"context"
	"encoding/json"
	"fmt"

	"listing-grader/internal/common/logger"
	"listing-grader/internal/models"
)

// Corpus is the engine input: listings plus optional best-seller references.
type Corpus struct {
	Source      string                 `json:"source"`
	Listings    []models.Listing       `json:"listings"`
	BestSellers []models.BestSellerRef `json:"bestSellers"`
	Skipped     int                    `json:"skipped"`
}

// Loader supplies a corpus from some persistent form.
type Loader interface {
	Load(ctx context.Context) (*Corpus, error)
}

// decodeListings turns raw records into listings. Records that fail the schema
// (when validate is set) or do not decode are skipped, not fatal.
func decodeListings(records []json.RawMessage, validate bool, log logger.Logger) ([]models.Listing, int) {
	listings := make([]models.Listing, 0, len(records))
	skipped := 0
	for i, raw := range records {
		if validate {
			res, err := ValidateRecord(raw)
			if err != nil || !res.Valid {
				fields := map[string]interface{}{"index": i}
				if err != nil {
					fields["error"] = err.Error()
				} else {
					fields["errors"] = res.GetErrorMessages()
				}
				log.Debug("listing record failed schema validation", fields)
				skipped++
				continue
			}
		}

		var l models.Listing
		if err := json.Unmarshal(raw, &l); err != nil {
			log.Debug("listing record could not be decoded", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			skipped++
			continue
		}
		listings = append(listings, l)
	}
	return listings, skipped
}

// splitDocument accepts either a bare array of listings or an object with
// "listings" and optional "bestSellers".
func splitDocument(data []byte) ([]json.RawMessage, []models.BestSellerRef, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil, nil
	}

	var doc struct {
		Listings    []json.RawMessage      `json:"listings"`
		BestSellers []models.BestSellerRef `json:"bestSellers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("corpus must be an array of listings or an object with listings: %w", err)
	}
	return doc.Listings, doc.BestSellers, nil
}
