// internal/artifacts/postgres.go
package artifacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"

	"github.com/lib/pq"
)

const sinkPostgres = "postgres"

// PostgresWriter upserts artifacts into a jsonb table keyed by name.
type PostgresWriter struct {
	db    *database.PostgresClient
	table string
	now   func() time.Time

	mu      sync.Mutex
	ensured bool
}

func NewPostgresWriter(db *database.PostgresClient, table string) *PostgresWriter {
	return &PostgresWriter{db: db, table: table, now: time.Now}
}

func (p *PostgresWriter) createTableSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name       TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	written_at TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(p.table))
}

func (p *PostgresWriter) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (name, document, written_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document, written_at = EXCLUDED.written_at`,
		pq.QuoteIdentifier(p.table))
}

func (p *PostgresWriter) ensureTable(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ensured {
		return nil
	}
	if _, err := p.db.Exec(ctx, p.createTableSQL()); err != nil {
		return err
	}
	p.ensured = true
	return nil
}

func (p *PostgresWriter) Write(ctx context.Context, name string, value interface{}) (err error) {
	defer func() { record(sinkPostgres, err) }()

	if err := p.ensureTable(ctx); err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkPostgres, p.table, err)
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkPostgres, name, err)
	}

	err = p.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, p.upsertSQL(), name, string(doc), p.now().UTC())
		return err
	})
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkPostgres, name, err)
	}
	return nil
}
