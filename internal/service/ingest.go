package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/parchment-ai/parchment/internal/domain"
)

// RawDocument is a single item produced by a connector before any
// normalization. Err is set when the connector could not produce the body;
// such items are counted as failures and never abort the batch.
type RawDocument struct {
	SourceID string
	Name     string
	Origin   string
	Raw      string
	Ticker   string
	Company  string
	FiledAt  time.Time
	Err      error
}

// Connector produces raw documents from one source. Collect streams items
// through yield so large corpora never sit in memory at once.
type Connector interface {
	SourceType() domain.SourceType
	Collect(ctx context.Context, yield func(RawDocument) error) error
}

// DocumentWriter persists document metadata.
type DocumentWriter interface {
	Create(ctx context.Context, d *domain.Document) error
}

// ChunkWriter persists a document's chunk set.
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
}

// TxRepositories exposes writers bound to one transaction.
type TxRepositories interface {
	Documents() DocumentWriter
	Chunks() ChunkWriter
}

// TxRunner runs fn inside a transaction, committing when fn returns nil.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// DocumentChecker answers the dedup question without a transaction.
type DocumentChecker interface {
	Exists(ctx context.Context, collection, sourceID string) (bool, error)
}

// EmbeddingClient turns text into a fixed-dimension vector.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Archiver stores the raw, unnormalized document body. Optional: a nil
// Archiver disables archiving.
type Archiver interface {
	ArchiveRaw(ctx context.Context, collection, sourceID string, body []byte) error
}

// IngestSummary reports the outcome of one batch run.
type IngestSummary struct {
	SourceType         domain.SourceType `json:"source_type"`
	DocumentsProcessed int               `json:"documents_processed"`
	DocumentsAdded     int               `json:"documents_added"`
	ChunksAdded        int               `json:"chunks_added"`
	Skipped            int               `json:"skipped"`
	Failed             int               `json:"failed"`
	Elapsed            time.Duration     `json:"elapsed"`
}

// IngestConfig carries the document-level thresholds and chunking settings.
type IngestConfig struct {
	MinDocumentChars int
	MaxDocumentChars int
	Chunking         ChunkConfig
}

// IngestService runs the pipeline for one connector: normalize, classify,
// chunk, embed, persist. Each document is written in its own transaction so
// readers never observe a partial chunk set, and one bad item never poisons
// the rest of the batch.
type IngestService struct {
	txRunner TxRunner
	checker  DocumentChecker
	embedder EmbeddingClient
	archiver Archiver
	cfg      IngestConfig
}

func NewIngestService(txRunner TxRunner, checker DocumentChecker, embedder EmbeddingClient, archiver Archiver, cfg IngestConfig) *IngestService {
	if cfg.Chunking.Size == 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	return &IngestService{
		txRunner: txRunner,
		checker:  checker,
		embedder: embedder,
		archiver: archiver,
		cfg:      cfg,
	}
}

// Ingest drains the connector and persists every admissible document.
// It returns an error only for batch-fatal conditions: a missing embedding
// credential, a persistence failure, or the connector failing outright.
func (s *IngestService) Ingest(ctx context.Context, connector Connector) (*IngestSummary, error) {
	start := time.Now()
	sourceType := connector.SourceType()
	collection := domain.CollectionForSource(sourceType)

	summary := &IngestSummary{SourceType: sourceType}

	err := connector.Collect(ctx, func(raw RawDocument) error {
		summary.DocumentsProcessed++

		if raw.Err != nil {
			summary.Failed++
			log.Printf("ingest: source=%s item=%s failed: %v", sourceType, raw.SourceID, raw.Err)
			return nil
		}

		added, chunks, err := s.processOne(ctx, collection, sourceType, raw)
		if err != nil {
			if isBatchFatal(err) {
				return err
			}
			summary.Failed++
			log.Printf("ingest: source=%s item=%s failed: %v", sourceType, raw.SourceID, err)
			return nil
		}
		if !added {
			summary.Skipped++
			return nil
		}

		summary.DocumentsAdded++
		summary.ChunksAdded += chunks
		return nil
	})

	summary.Elapsed = time.Since(start)
	if err != nil {
		return summary, err
	}

	log.Printf("ingest: source=%s processed=%d added=%d chunks=%d skipped=%d failed=%d elapsed=%s",
		sourceType, summary.DocumentsProcessed, summary.DocumentsAdded, summary.ChunksAdded,
		summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))

	return summary, nil
}

// processOne runs the full pipeline for a single raw document. The bool
// result reports whether a document was persisted (false means skipped).
func (s *IngestService) processOne(ctx context.Context, collection string, sourceType domain.SourceType, raw RawDocument) (bool, int, error) {
	exists, err := s.checker.Exists(ctx, collection, raw.SourceID)
	if err != nil {
		return false, 0, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to check for existing document", err)
	}
	if exists {
		return false, 0, nil
	}

	text := NormalizeText(raw.Raw, s.cfg.MaxDocumentChars)
	if len([]rune(text)) < s.cfg.MinDocumentChars {
		return false, 0, nil
	}

	contractType := ClassifyContract(raw.Name, text)
	spans := SplitText(text, s.cfg.Chunking)

	doc := &domain.Document{
		ID:           uuid.NewString(),
		SourceID:     raw.SourceID,
		SourceType:   sourceType,
		ContractType: contractType,
		Ticker:       raw.Ticker,
		Company:      raw.Company,
		FiledAt:      raw.FiledAt,
		Origin:       raw.Origin,
		Text:         text,
		CharLength:   len([]rune(text)),
		CreatedAt:    time.Now().UTC(),
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, span := range spans {
		embedding, err := s.embedder.GenerateEmbedding(ctx, span.Content)
		if err != nil {
			if errors.Is(err, domain.ErrNoEmbeddingCredential) {
				return false, 0, err
			}
			return false, 0, domain.NewDomainErrorWithCause(domain.ErrCodeIngestionItem, "failed to embed chunk", err)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Collection: collection,
			Index:      i,
			Content:    span.Content,
			Embedding:  embedding,
			CreatedAt:  doc.CreatedAt,
		})
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveRaw(ctx, collection, raw.SourceID, []byte(raw.Raw)); err != nil {
			log.Printf("ingest: source=%s item=%s archive failed: %v", sourceType, raw.SourceID, err)
		}
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return repos.Chunks().ReplaceChunks(ctx, doc.ID, chunks)
	})
	if err != nil {
		return false, 0, domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to persist document", err)
	}

	return true, len(chunks), nil
}

// isBatchFatal distinguishes errors that abort the whole run from per-item
// failures. Persistence problems and missing credentials would fail every
// remaining item, so retrying the rest is pointless.
func isBatchFatal(err error) bool {
	if errors.Is(err, domain.ErrNoEmbeddingCredential) {
		return true
	}
	return domain.ErrorCode(err) == domain.ErrCodePersistence
}
