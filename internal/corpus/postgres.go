// internal/corpus/postgres.go
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/models"

	"github.com/lib/pq"
)

const listingColumns = `id, url, title, short_description, long_description, tags, category,
	price, images_count, videos_count, rating, reviews_count, last_update`

// PostgresLoader reads listings and best sellers from two tables. Tags and the
// rating histogram are stored as jsonb.
type PostgresLoader struct {
	db               *database.PostgresClient
	table            string
	bestSellersTable string
	logger           logger.Logger
}

func NewPostgresLoader(db *database.PostgresClient, table, bestSellersTable string, log logger.Logger) *PostgresLoader {
	return &PostgresLoader{
		db:               db,
		table:            table,
		bestSellersTable: bestSellersTable,
		logger:           logger.OrNop(log).WithFields(map[string]interface{}{"loader": "postgres"}),
	}
}

func (p *PostgresLoader) Load(ctx context.Context) (*Corpus, error) {
	listings, skipped, err := p.loadListings(ctx)
	if err != nil {
		return nil, err
	}

	var bestSellers []models.BestSellerRef
	if p.bestSellersTable != "" {
		bestSellers, err = p.loadBestSellers(ctx)
		if err != nil {
			return nil, err
		}
	}

	p.logger.Info("corpus loaded", map[string]interface{}{
		"table":       p.table,
		"listings":    len(listings),
		"skipped":     skipped,
		"bestSellers": len(bestSellers),
	})

	return &Corpus{
		Source:      "postgres:" + p.table,
		Listings:    listings,
		BestSellers: bestSellers,
		Skipped:     skipped,
	}, nil
}

func (p *PostgresLoader) loadListings(ctx context.Context) ([]models.Listing, int, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", listingColumns, pq.QuoteIdentifier(p.table))
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("select_listings", err)
	}
	defer rows.Close()

	var listings []models.Listing
	skipped := 0
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			p.logger.Debug("listing row skipped", map[string]interface{}{"error": err.Error()})
			skipped++
			continue
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("select_listings", err)
	}
	return listings, skipped, nil
}

func scanListing(rows *sql.Rows) (models.Listing, error) {
	var (
		l                   models.Listing
		url, short, long    sql.NullString
		tagsRaw, ratingRaw  []byte
		price               sql.NullFloat64
		images, videos, rev sql.NullInt64
		lastUpdate          sql.NullTime
	)
	if err := rows.Scan(&l.ID, &url, &l.Title, &short, &long, &tagsRaw, &l.Category,
		&price, &images, &videos, &ratingRaw, &rev, &lastUpdate); err != nil {
		return l, err
	}

	l.URL = url.String
	l.ShortDescription = short.String
	l.LongDescription = long.String
	l.ImagesCount = int(images.Int64)
	l.VideosCount = int(videos.Int64)
	l.ReviewsCount = int(rev.Int64)
	if price.Valid {
		v := price.Float64
		l.Price = &v
	}
	if lastUpdate.Valid {
		l.LastUpdate = models.NewDate(lastUpdate.Time)
	}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &l.Tags); err != nil {
			return l, fmt.Errorf("tags for %s: %w", l.ID, err)
		}
	}
	if len(ratingRaw) > 0 {
		if err := json.Unmarshal(ratingRaw, &l.Rating); err != nil {
			return l, fmt.Errorf("rating for %s: %w", l.ID, err)
		}
	}
	return l, nil
}

func (p *PostgresLoader) loadBestSellers(ctx context.Context) ([]models.BestSellerRef, error) {
	query := fmt.Sprintf("SELECT id, url, title FROM %s ORDER BY position", pq.QuoteIdentifier(p.bestSellersTable))
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_best_sellers", err)
	}
	defer rows.Close()

	var refs []models.BestSellerRef
	for rows.Next() {
		var id, url, title sql.NullString
		if err := rows.Scan(&id, &url, &title); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("select_best_sellers", err)
		}
		refs = append(refs, models.BestSellerRef{ID: id.String, URL: url.String, Title: title.String})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_best_sellers", err)
	}
	return refs, nil
}
