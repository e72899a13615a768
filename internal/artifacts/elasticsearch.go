// internal/artifacts/elasticsearch.go
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
)

const sinkElasticsearch = "elasticsearch"

const artifactMapping = `{
  "mappings": {
    "properties": {
      "name":      {"type": "keyword"},
      "writtenAt": {"type": "date"},
      "document":  {"type": "object", "enabled": false}
    }
  }
}`

var docIDReplacer = strings.NewReplacer("/", "__")

// ElasticsearchWriter indexes each artifact as one document whose id is the
// artifact name; later runs overwrite earlier ones.
type ElasticsearchWriter struct {
	es    *database.ElasticsearchClient
	index string
	now   func() time.Time

	mu      sync.Mutex
	ensured bool
}

func NewElasticsearchWriter(es *database.ElasticsearchClient, index string) *ElasticsearchWriter {
	return &ElasticsearchWriter{es: es, index: index, now: time.Now}
}

type artifactDocument struct {
	Name      string          `json:"name"`
	WrittenAt time.Time       `json:"writtenAt"`
	Document  json.RawMessage `json:"document"`
}

func (e *ElasticsearchWriter) ensureIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ensured {
		return nil
	}
	if err := e.es.EnsureIndex(ctx, e.index, artifactMapping); err != nil {
		return err
	}
	e.ensured = true
	return nil
}

func (e *ElasticsearchWriter) Write(ctx context.Context, name string, value interface{}) (err error) {
	defer func() { record(sinkElasticsearch, err) }()

	if err := e.ensureIndex(ctx); err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkElasticsearch, e.index, err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkElasticsearch, name, err)
	}
	body, err := json.Marshal(artifactDocument{Name: name, WrittenAt: e.now().UTC(), Document: raw})
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkElasticsearch, name, err)
	}

	client := e.es.Client
	res, err := client.Index(
		e.index,
		bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(docIDReplacer.Replace(name)),
		client.Index.WithRefresh("true"),
	)
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkElasticsearch, name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewArtifactWriteFailedError(sinkElasticsearch, name, fmt.Errorf("%s", res.Status()))
	}
	return nil
}
