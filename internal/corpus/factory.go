// internal/corpus/factory.go
package corpus

import (
	"listing-grader/internal/common/config"
	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
)

// Backends carries the clients a loader may need; unused ones stay nil.
type Backends struct {
	Postgres      *database.PostgresClient
	Elasticsearch *database.ElasticsearchClient
}

// NewLoader picks the loader for cfg.Source.
func NewLoader(cfg config.CorpusConfig, b Backends, log logger.Logger) (Loader, error) {
	switch cfg.Source {
	case "", config.SourceFile:
		if cfg.Path == "" {
			return nil, apperrors.NewConfigError("corpus.path is required for the file source")
		}
		return NewFileLoader(cfg.Path, cfg.BestSellersPath, cfg.ValidateSchema, log), nil
	case config.SourcePostgres:
		if b.Postgres == nil {
			return nil, apperrors.NewConfigError("postgres corpus source without a postgres client")
		}
		return NewPostgresLoader(b.Postgres, cfg.Table, cfg.BestSellersTable, log), nil
	case config.SourceElasticsearch:
		if b.Elasticsearch == nil {
			return nil, apperrors.NewConfigError("elasticsearch corpus source without a client")
		}
		return NewElasticsearchLoader(b.Elasticsearch, cfg.Index, cfg.BestSellersIndex, cfg.PageSize, cfg.ValidateSchema, log), nil
	default:
		return nil, apperrors.NewConfigError("unknown corpus source: " + cfg.Source)
	}
}
