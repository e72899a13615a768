// internal/corpus/elasticsearch.go
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/models"
)

const defaultPageSize = 500

// ElasticsearchLoader pages through an index sorted by id. Each hit's _source
// is one listing record.
type ElasticsearchLoader struct {
	es               *database.ElasticsearchClient
	index            string
	bestSellersIndex string
	pageSize         int
	validate         bool
	logger           logger.Logger
}

func NewElasticsearchLoader(es *database.ElasticsearchClient, index, bestSellersIndex string, pageSize int, validate bool, log logger.Logger) *ElasticsearchLoader {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &ElasticsearchLoader{
		es:               es,
		index:            index,
		bestSellersIndex: bestSellersIndex,
		pageSize:         pageSize,
		validate:         validate,
		logger:           logger.OrNop(log).WithFields(map[string]interface{}{"loader": "elasticsearch"}),
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticsearchLoader) Load(ctx context.Context) (*Corpus, error) {
	records, err := e.fetchAll(ctx, e.index)
	if err != nil {
		return nil, err
	}
	listings, skipped := decodeListings(records, e.validate, e.logger)

	var bestSellers []models.BestSellerRef
	if e.bestSellersIndex != "" {
		raw, err := e.fetchAll(ctx, e.bestSellersIndex)
		if err != nil {
			return nil, err
		}
		for _, r := range raw {
			var ref models.BestSellerRef
			if err := json.Unmarshal(r, &ref); err != nil {
				e.logger.Debug("best seller document skipped", map[string]interface{}{"error": err.Error()})
				continue
			}
			bestSellers = append(bestSellers, ref)
		}
	}

	e.logger.Info("corpus loaded", map[string]interface{}{
		"index":       e.index,
		"listings":    len(listings),
		"skipped":     skipped,
		"bestSellers": len(bestSellers),
	})

	return &Corpus{
		Source:      "elasticsearch:" + e.index,
		Listings:    listings,
		BestSellers: bestSellers,
		Skipped:     skipped,
	}, nil
}

func (e *ElasticsearchLoader) fetchAll(ctx context.Context, index string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for from := 0; ; from += e.pageSize {
		page, err := e.fetchPage(ctx, index, from)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < e.pageSize {
			return all, nil
		}
	}
}

func (e *ElasticsearchLoader) fetchPage(ctx context.Context, index string, from int) ([]json.RawMessage, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []interface{}{map[string]interface{}{"id": map[string]interface{}{"order": "asc"}}},
		"from":  from,
		"size":  e.pageSize,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, apperrors.NewSearchQueryFailedError("encode_query", err)
	}

	client := e.es.Client
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError("listings_search", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewIndexNotFoundError(index)
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError("listings_search", fmt.Errorf("%s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError("decode_response", err)
	}

	out := make([]json.RawMessage, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
