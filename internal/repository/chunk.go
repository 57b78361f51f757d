package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository is the vector store: it persists chunk embeddings per
// collection and serves similarity queries.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
// Run inside the same transaction as the document write so readers observe
// either none or all of a document's chunks.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, collection, chunk_index, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7)`,
			c.ID,
			c.DocumentID,
			c.Collection,
			c.Index,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Search returns the top-k chunks of a collection by cosine similarity to
// the query embedding, with document provenance joined in. Ordering is
// deterministic: distance, then document id, then chunk index.
func (r *ChunkRepository) Search(ctx context.Context, collection string, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		k = 4
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, c.collection, c.chunk_index, c.content,
		        1 - (c.embedding <=> $1) AS score,
		        d.source_id, d.source_type, d.contract_type, d.ticker, d.company, d.filed_at
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.collection = $2
		 ORDER BY c.embedding <=> $1, c.document_id, c.chunk_index
		 LIMIT $3`,
		vec, collection, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, k)
	for rows.Next() {
		var res domain.RetrievalResult
		var doc domain.Document
		var ticker, company *string
		var filedAt *time.Time
		if err := rows.Scan(&res.ChunkID, &res.DocumentID, &res.Collection, &res.ChunkIndex, &res.Excerpt,
			&res.Score, &doc.SourceID, &doc.SourceType, &doc.ContractType, &ticker, &company, &filedAt); err != nil {
			return nil, err
		}
		if ticker != nil {
			doc.Ticker = *ticker
		}
		if company != nil {
			doc.Company = *company
		}
		if filedAt != nil {
			doc.FiledAt = *filedAt
		}
		res.SourceType = doc.SourceType
		res.ContractType = doc.ContractType
		res.FiledAt = doc.FiledAt
		res.Label = doc.ProvenanceLabel()
		results = append(results, res)
	}

	return results, rows.Err()
}

// EmbeddingDimension reports the vector dimension declared on the embedding
// column. For pgvector columns the type modifier is the dimension itself; an
// undimensioned column reports 0.
func (r *ChunkRepository) EmbeddingDimension(ctx context.Context) (int, error) {
	var typmod int
	err := r.db.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = 'document_chunks'::regclass AND attname = 'embedding'`,
	).Scan(&typmod)
	if err != nil {
		return 0, err
	}
	if typmod < 0 {
		return 0, nil
	}
	return typmod, nil
}

func (r *ChunkRepository) CountByCollection(ctx context.Context, collection string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE collection = $1`,
		collection,
	).Scan(&count)
	return count, err
}
