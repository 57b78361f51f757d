package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDocumentWriter struct {
	mock.Mock
}

func (m *mockDocumentWriter) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

type mockChunkWriter struct {
	mock.Mock
}

func (m *mockChunkWriter) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

type mockTxRunner struct {
	docs   *mockDocumentWriter
	chunks *mockChunkWriter
	err    error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	if m.err != nil {
		return m.err
	}
	return fn(m)
}

func (m *mockTxRunner) Documents() DocumentWriter { return m.docs }
func (m *mockTxRunner) Chunks() ChunkWriter       { return m.chunks }

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) Exists(ctx context.Context, collection, sourceID string) (bool, error) {
	args := m.Called(ctx, collection, sourceID)
	return args.Bool(0), args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *mockEmbedder) Dimensions() int { return 3 }

type sliceConnector struct {
	sourceType domain.SourceType
	items      []RawDocument
}

func (c *sliceConnector) SourceType() domain.SourceType { return c.sourceType }

func (c *sliceConnector) Collect(ctx context.Context, yield func(RawDocument) error) error {
	for _, item := range c.items {
		if err := yield(item); err != nil {
			return err
		}
	}
	return nil
}

func newTestIngest(runner *mockTxRunner, checker *mockChecker, embedder *mockEmbedder) *IngestService {
	return NewIngestService(runner, checker, embedder, nil, IngestConfig{
		MinDocumentChars: 100,
		MaxDocumentChars: 50000,
		Chunking:         DefaultChunkConfig(),
	})
}

func TestIngestSkipsShortDocuments(t *testing.T) {
	docs := new(mockDocumentWriter)
	chunks := new(mockChunkWriter)
	runner := &mockTxRunner{docs: docs, chunks: chunks}
	checker := new(mockChecker)
	embedder := new(mockEmbedder)

	checker.On("Exists", mock.Anything, domain.CollectionHistorical, "tiny.txt").Return(false, nil)

	svc := newTestIngest(runner, checker, embedder)
	connector := &sliceConnector{
		sourceType: domain.SourceTypeStatic,
		items: []RawDocument{
			{SourceID: "tiny.txt", Name: "tiny.txt", Raw: strings.Repeat("x", 50)},
		},
	}

	summary, err := svc.Ingest(context.Background(), connector)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.DocumentsProcessed)
	assert.Equal(t, 0, summary.DocumentsAdded)
	assert.Equal(t, 1, summary.Skipped)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestPersistsDocumentWithChunks(t *testing.T) {
	docs := new(mockDocumentWriter)
	chunks := new(mockChunkWriter)
	runner := &mockTxRunner{docs: docs, chunks: chunks}
	checker := new(mockChecker)
	embedder := new(mockEmbedder)

	text := "Section 5. Termination. " + strings.Repeat("The employee agrees to the terms herein. ", 3)
	require.GreaterOrEqual(t, len([]rune(text)), 100)

	checker.On("Exists", mock.Anything, domain.CollectionHistorical, "employment_agreement.txt").Return(false, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2, 0.3}, nil)

	var persisted *domain.Document
	docs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(1).(*domain.Document)
	}).Return(nil)
	chunks.On("ReplaceChunks", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestIngest(runner, checker, embedder)
	connector := &sliceConnector{
		sourceType: domain.SourceTypeStatic,
		items: []RawDocument{
			{SourceID: "employment_agreement.txt", Name: "employment_agreement.txt", Raw: text},
		},
	}

	summary, err := svc.Ingest(context.Background(), connector)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.DocumentsAdded)
	assert.Equal(t, 1, summary.ChunksAdded)
	assert.Equal(t, 0, summary.Skipped)

	require.NotNil(t, persisted)
	assert.Equal(t, domain.SourceTypeStatic, persisted.SourceType)
	assert.Equal(t, domain.ContractTypeEmployment, persisted.ContractType)
	assert.Equal(t, domain.CollectionHistorical, persisted.Collection())
	assert.NotEmpty(t, persisted.ID)

	chunks.AssertCalled(t, "ReplaceChunks", mock.Anything, persisted.ID, mock.MatchedBy(func(cs []domain.Chunk) bool {
		return len(cs) == 1 && cs[0].Collection == domain.CollectionHistorical && cs[0].Index == 0
	}))
}

func TestIngestIsolatesItemFailures(t *testing.T) {
	docs := new(mockDocumentWriter)
	chunks := new(mockChunkWriter)
	runner := &mockTxRunner{docs: docs, chunks: chunks}
	checker := new(mockChecker)
	embedder := new(mockEmbedder)

	good := strings.Repeat("This lease agreement covers the premises described below. ", 3)

	checker.On("Exists", mock.Anything, domain.CollectionHistorical, "lease.txt").Return(false, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2, 0.3}, nil)
	docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	chunks.On("ReplaceChunks", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestIngest(runner, checker, embedder)
	connector := &sliceConnector{
		sourceType: domain.SourceTypeStatic,
		items: []RawDocument{
			{SourceID: "broken.txt", Name: "broken.txt", Err: errors.New("read failed")},
			{SourceID: "lease.txt", Name: "lease.txt", Raw: good},
		},
	}

	summary, err := svc.Ingest(context.Background(), connector)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.DocumentsProcessed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.DocumentsAdded)
}

func TestIngestSkipsExistingDocuments(t *testing.T) {
	docs := new(mockDocumentWriter)
	chunks := new(mockChunkWriter)
	runner := &mockTxRunner{docs: docs, chunks: chunks}
	checker := new(mockChecker)
	embedder := new(mockEmbedder)

	checker.On("Exists", mock.Anything, domain.CollectionLive, "acc-123").Return(true, nil)

	svc := newTestIngest(runner, checker, embedder)
	connector := &sliceConnector{
		sourceType: domain.SourceTypeLive,
		items: []RawDocument{
			{SourceID: "acc-123", Name: "EX-10.1", Raw: strings.Repeat("material contract text ", 20)},
		},
	}

	summary, err := svc.Ingest(context.Background(), connector)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.DocumentsAdded)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestIngestAbortsWhenEmbeddingCredentialMissing(t *testing.T) {
	docs := new(mockDocumentWriter)
	chunks := new(mockChunkWriter)
	runner := &mockTxRunner{docs: docs, chunks: chunks}
	checker := new(mockChecker)
	embedder := new(mockEmbedder)

	checker.On("Exists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, domain.ErrNoEmbeddingCredential)

	svc := newTestIngest(runner, checker, embedder)
	connector := &sliceConnector{
		sourceType: domain.SourceTypeStatic,
		items: []RawDocument{
			{SourceID: "a.txt", Name: "a.txt", Raw: strings.Repeat("employment agreement terms ", 10)},
			{SourceID: "b.txt", Name: "b.txt", Raw: strings.Repeat("employment agreement terms ", 10)},
		},
	}

	summary, err := svc.Ingest(context.Background(), connector)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoEmbeddingCredential)
	assert.Equal(t, 1, summary.DocumentsProcessed)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestAbortsOnPersistenceFailure(t *testing.T) {
	docs := new(mockDocumentWriter)
	chunks := new(mockChunkWriter)
	runner := &mockTxRunner{docs: docs, chunks: chunks}
	checker := new(mockChecker)
	embedder := new(mockEmbedder)

	checker.On("Exists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2, 0.3}, nil)
	docs.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	svc := newTestIngest(runner, checker, embedder)
	connector := &sliceConnector{
		sourceType: domain.SourceTypeStatic,
		items: []RawDocument{
			{SourceID: "a.txt", Name: "a.txt", Raw: strings.Repeat("employment agreement terms ", 10)},
			{SourceID: "b.txt", Name: "b.txt", Raw: strings.Repeat("employment agreement terms ", 10)},
		},
	}

	summary, err := svc.Ingest(context.Background(), connector)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodePersistence, domain.ErrorCode(err))
	assert.Equal(t, 1, summary.DocumentsProcessed)
}

func TestIngestSummaryElapsed(t *testing.T) {
	runner := &mockTxRunner{docs: new(mockDocumentWriter), chunks: new(mockChunkWriter)}
	svc := newTestIngest(runner, new(mockChecker), new(mockEmbedder))

	summary, err := svc.Ingest(context.Background(), &sliceConnector{sourceType: domain.SourceTypeStatic})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.Elapsed, time.Duration(0))
	assert.Equal(t, 0, summary.DocumentsProcessed)
}
