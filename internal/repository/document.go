package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/pagination"
)

// DocumentRepository handles persistence of ingested documents.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents
			(id, source_id, collection, source_type, contract_type, ticker, company, filed_at, origin, char_length, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID,
		d.SourceID,
		d.Collection(),
		d.SourceType,
		d.ContractType,
		nullableString(d.Ticker),
		nullableString(d.Company),
		nullableTime(d.FiledAt),
		d.Origin,
		d.CharLength,
		createdAt,
	)
	return err
}

// Exists reports whether a document with the given stable source identifier
// is already present in the collection. This is the live-filing dedup check.
func (r *DocumentRepository) Exists(ctx context.Context, collection, sourceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND source_id = $2)`,
		collection, sourceID,
	).Scan(&exists)
	return exists, err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source_id, collection, source_type, contract_type, ticker, company, filed_at, origin, char_length, created_at
		 FROM documents WHERE id = $1`,
		id,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListByCollection returns document metadata newest-first with cursor
// pagination.
func (r *DocumentRepository) ListByCollection(ctx context.Context, collection string, cursor *pagination.Cursor, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, source_id, collection, source_type, contract_type, ticker, company, filed_at, origin, char_length, created_at
			 FROM documents
			 WHERE collection = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			collection, cursor.Timestamp, cursor.LastID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, source_id, collection, source_type, contract_type, ticker, company, filed_at, origin, char_length, created_at
			 FROM documents
			 WHERE collection = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			collection, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) CountByCollection(ctx context.Context, collection string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = $1`,
		collection,
	).Scan(&count)
	return count, err
}

// ContractTypeCounts returns the distribution of classified contract types
// across all collections.
func (r *DocumentRepository) ContractTypeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT contract_type, COUNT(*) FROM documents GROUP BY contract_type`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

// DeleteCollection removes a collection's documents; chunks cascade. Other
// collections are untouched, which is what makes per-source rebuilds safe.
func (r *DocumentRepository) DeleteCollection(ctx context.Context, collection string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
	return err
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var collection string
	var ticker, company *string
	var filedAt *time.Time
	err := row.Scan(&d.ID, &d.SourceID, &collection, &d.SourceType, &d.ContractType,
		&ticker, &company, &filedAt, &d.Origin, &d.CharLength, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ticker != nil {
		d.Ticker = *ticker
	}
	if company != nil {
		d.Company = *company
	}
	if filedAt != nil {
		d.FiledAt = *filedAt
	}
	return &d, nil
}
