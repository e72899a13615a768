// internal/corpus/corpus_test.go
package corpus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"listing-grader/internal/common/config"
	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newESServer(t *testing.T, handler http.HandlerFunc) *database.ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	es, err := database.NewElasticsearchWithTransport(srv.URL, http.DefaultTransport)
	require.NoError(t, err)
	return es
}

const validRecord = `{"id":"a1","title":"Grid Toolkit","category":"Tools/Grid","tags":["grid"],"imagesCount":4,"rating":[{"stars":5,"count":3}],"lastUpdate":"2024-03-01"}`

// ==========================
// Schema
// ==========================

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"valid", validRecord, true},
		{"url instead of id", `{"url":"https://x/1","title":"t","category":"c"}`, true},
		{"no identity", `{"title":"t","category":"c"}`, false},
		{"missing category", `{"id":"1","title":"t"}`, false},
		{"tags wrong type", `{"id":"1","title":"t","category":"c","tags":"grid"}`, false},
		{"stars out of range", `{"id":"1","title":"t","category":"c","rating":[{"stars":7,"count":1}]}`, false},
		{"negative images", `{"id":"1","title":"t","category":"c","imagesCount":-1}`, false},
		{"null price", `{"id":"1","title":"t","category":"c","price":null}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateRecord(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
		})
	}
}

// ==========================
// File loader
// ==========================

func TestFileLoader_ArrayDocument(t *testing.T) {
	path := writeFile(t, "corpus.json", `[`+validRecord+`, {"id":"a2","title":"Second","category":"Tools/Grid","lastUpdate":"2024-03-02T10:00:00Z"}]`)
	c, err := NewFileLoader(path, "", false, logger.NewTestLogger(t)).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, c.Listings, 2)
	assert.Equal(t, "a1", c.Listings[0].ID)
	assert.Equal(t, 4, c.Listings[0].ImagesCount)
	assert.Equal(t, 5.0, c.Listings[0].AverageRating())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), c.Listings[0].LastUpdate.Time)
	assert.Empty(t, c.BestSellers)
	assert.Equal(t, "file:"+path, c.Source)
}

func TestFileLoader_ObjectDocumentWithBestSellers(t *testing.T) {
	path := writeFile(t, "corpus.json", `{"listings":[`+validRecord+`],"bestSellers":[{"id":"a1","title":"Grid Toolkit"}]}`)
	extra := writeFile(t, "best.json", `[{"url":"https://x/9","title":"Other"}]`)

	c, err := NewFileLoader(path, extra, false, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, c.BestSellers, 2)
	assert.Equal(t, "a1", c.BestSellers[0].ID)
	assert.Equal(t, "https://x/9", c.BestSellers[1].URL)
}

func TestFileLoader_SchemaValidationSkipsBadRecords(t *testing.T) {
	path := writeFile(t, "corpus.json", `[`+validRecord+`, {"id":"bad","title":"t","category":"c","tags":"oops"}, {"title":"no id","category":"c"}]`)

	strict, err := NewFileLoader(path, "", true, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, strict.Listings, 1)
	assert.Equal(t, 2, strict.Skipped)

	// without the schema the type error still drops the record, the missing id does not
	lax, err := NewFileLoader(path, "", false, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, lax.Listings, 2)
	assert.Equal(t, 1, lax.Skipped)
}

func TestFileLoader_Errors(t *testing.T) {
	_, err := NewFileLoader(filepath.Join(t.TempDir(), "missing.json"), "", false, nil).Load(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCorpusLoadFailed))

	path := writeFile(t, "corpus.json", `"just a string"`)
	_, err = NewFileLoader(path, "", false, nil).Load(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCorpusValidationFailed))

	good := writeFile(t, "ok.json", `[]`)
	badBest := writeFile(t, "best.json", `{}`)
	_, err = NewFileLoader(good, badBest, false, nil).Load(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCorpusValidationFailed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileLoader(good, "", false, nil).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Postgres loader
// ==========================

func TestPostgresLoader_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "url", "title", "short_description", "long_description", "tags", "category",
		"price", "images_count", "videos_count", "rating", "reviews_count", "last_update"}
	updated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "listings" ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "https://x/p1", "Paid", "short", "long", []byte(`["a","b"]`), "Tools",
				9.99, int64(5), int64(1), []byte(`[{"stars":4,"count":10}]`), int64(10), updated).
			AddRow("p2", nil, "Free", nil, nil, nil, "Tools",
				nil, int64(0), int64(0), nil, int64(0), nil).
			AddRow("p3", nil, "Broken", nil, nil, []byte(`{"not":"array"}`), "Tools",
				nil, int64(0), int64(0), nil, int64(0), nil))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, url, title FROM "best_sellers" ORDER BY position`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "title"}).AddRow("p1", nil, "Paid"))

	loader := NewPostgresLoader(database.NewPostgresFromDB(db), "listings", "best_sellers", logger.NewTestLogger(t))
	c, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, c.Listings, 2)
	assert.Equal(t, 1, c.Skipped)
	p1 := c.Listings[0]
	assert.Equal(t, []string{"a", "b"}, p1.Tags)
	require.NotNil(t, p1.Price)
	assert.Equal(t, 9.99, *p1.Price)
	assert.Equal(t, 4.0, p1.AverageRating())
	assert.Equal(t, updated, p1.LastUpdate.Time)

	p2 := c.Listings[1]
	assert.Nil(t, p2.Price)
	assert.Nil(t, p2.LastUpdate)
	assert.Empty(t, p2.URL)

	require.Len(t, c.BestSellers, 1)
	assert.Equal(t, "p1", c.BestSellers[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoader_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
	_, err = NewPostgresLoader(database.NewPostgresFromDB(db), "listings", "", nil).Load(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeQueryExecutionFailed))
}

// ==========================
// Elasticsearch loader
// ==========================

func TestElasticsearchLoader_Paginates(t *testing.T) {
	var calls int32
	es := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var q struct {
			From int `json:"from"`
			Size int `json:"size"`
		}
		assert.NoError(t, json.Unmarshal(body, &q))
		atomic.AddInt32(&calls, 1)

		switch {
		case strings.HasPrefix(r.URL.Path, "/listings/"):
			if q.From == 0 {
				_, _ = io.WriteString(w, `{"hits":{"hits":[{"_source":{"id":"e1","title":"One","category":"C"}},{"_source":{"id":"e2","title":"Two","category":"C"}}]}}`)
				return
			}
			_, _ = io.WriteString(w, `{"hits":{"hits":[{"_source":{"id":"e3","title":"Three","category":"C"}}]}}`)
		case strings.HasPrefix(r.URL.Path, "/best/"):
			_, _ = io.WriteString(w, `{"hits":{"hits":[{"_source":{"id":"e2","title":"Two"}}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c, err := NewElasticsearchLoader(es, "listings", "best", 2, true, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Listings, 3)
	assert.Equal(t, "e3", c.Listings[2].ID)
	require.Len(t, c.BestSellers, 1)
	assert.Equal(t, "e2", c.BestSellers[0].ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestElasticsearchLoader_MissingIndex(t *testing.T) {
	es := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"},"status":404}`)
	})
	_, err := NewElasticsearchLoader(es, "absent", "", 0, false, nil).Load(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeIndexNotFound))
}

// ==========================
// Factory
// ==========================

func TestNewLoader(t *testing.T) {
	l, err := NewLoader(config.CorpusConfig{Source: config.SourceFile, Path: "x.json"}, Backends{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileLoader{}, l)

	_, err = NewLoader(config.CorpusConfig{Source: config.SourceFile}, Backends{}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfig))

	_, err = NewLoader(config.CorpusConfig{Source: config.SourcePostgres}, Backends{}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfig))

	_, err = NewLoader(config.CorpusConfig{Source: "csv"}, Backends{}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfig))
}
