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

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, collection string, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	args := m.Called(ctx, collection, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalResult), args.Error(1)
}

func newTestRetrieval(embedder *mockEmbedder, searcher *mockSearcher) *RetrievalService {
	return NewRetrievalService(embedder, searcher, RetrievalConfig{TopK: 4, SearchTimeout: time.Second})
}

func TestRetrieveEmptyQueryReturnsNothing(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)
	svc := newTestRetrieval(embedder, searcher)

	for _, query := range []string{"", "   ", "\n\t"} {
		results, err := svc.Retrieve(context.Background(), query, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	}

	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieveSearchesBothCollectionsByDefault(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedding := []float32{0.1, 0.2, 0.3}
	embedder.On("GenerateEmbedding", mock.Anything, "termination clauses").Return(embedding, nil)
	searcher.On("Search", mock.Anything, domain.CollectionHistorical, embedding, 4).Return([]domain.RetrievalResult{
		{ChunkID: "h1", DocumentID: "dh", Collection: domain.CollectionHistorical, Score: 0.9},
	}, nil)
	searcher.On("Search", mock.Anything, domain.CollectionLive, embedding, 4).Return([]domain.RetrievalResult{
		{ChunkID: "l1", DocumentID: "dl", Collection: domain.CollectionLive, Score: 0.8},
	}, nil)

	svc := newTestRetrieval(embedder, searcher)
	results, err := svc.Retrieve(context.Background(), "termination clauses", nil, 0)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "h1", results[0].ChunkID)
	assert.Equal(t, "l1", results[1].ChunkID)
	embedder.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
}

func TestRetrieveSingleSource(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedding := []float32{0.5, 0.5, 0.5}
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
	searcher.On("Search", mock.Anything, domain.CollectionLive, embedding, 4).Return([]domain.RetrievalResult{
		{ChunkID: "l1", Collection: domain.CollectionLive, Score: 0.7},
	}, nil)

	svc := newTestRetrieval(embedder, searcher)
	results, err := svc.Retrieve(context.Background(), "recent 8-K exhibits", []domain.SourceType{domain.SourceTypeLive}, 0)

	require.NoError(t, err)
	require.Len(t, results, 1)
	searcher.AssertNotCalled(t, "Search", mock.Anything, domain.CollectionHistorical, mock.Anything, mock.Anything)
}

func TestRetrieveFailedCollectionContributesNothing(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedding := []float32{0.1, 0.2, 0.3}
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
	searcher.On("Search", mock.Anything, domain.CollectionHistorical, embedding, 4).Return(nil, errors.New("connection refused"))
	searcher.On("Search", mock.Anything, domain.CollectionLive, embedding, 4).Return([]domain.RetrievalResult{
		{ChunkID: "l1", Collection: domain.CollectionLive, Score: 0.6},
	}, nil)

	svc := newTestRetrieval(embedder, searcher)
	results, err := svc.Retrieve(context.Background(), "indemnification", nil, 0)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "l1", results[0].ChunkID)
}

func TestRetrieveEmbeddingErrorPropagates(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, domain.ErrNoEmbeddingCredential)

	svc := newTestRetrieval(embedder, searcher)
	results, err := svc.Retrieve(context.Background(), "change of control", nil, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoEmbeddingCredential)
	assert.Empty(t, results)
	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieveMergeOrderingIsDeterministic(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedding := []float32{0.1, 0.2, 0.3}
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
	searcher.On("Search", mock.Anything, domain.CollectionHistorical, embedding, 4).Return([]domain.RetrievalResult{
		{ChunkID: "h1", DocumentID: "doc-a", Collection: domain.CollectionHistorical, ChunkIndex: 2, Score: 0.5},
		{ChunkID: "h2", DocumentID: "doc-a", Collection: domain.CollectionHistorical, ChunkIndex: 1, Score: 0.5},
		{ChunkID: "h3", DocumentID: "doc-b", Collection: domain.CollectionHistorical, ChunkIndex: 0, Score: 0.9},
	}, nil)
	searcher.On("Search", mock.Anything, domain.CollectionLive, embedding, 4).Return([]domain.RetrievalResult{
		{ChunkID: "l1", DocumentID: "doc-c", Collection: domain.CollectionLive, ChunkIndex: 0, Score: 0.5},
	}, nil)

	svc := newTestRetrieval(embedder, searcher)

	var first []domain.RetrievalResult
	for i := 0; i < 5; i++ {
		results, err := svc.Retrieve(context.Background(), "assignment provisions", nil, 0)
		require.NoError(t, err)
		require.Len(t, results, 4)
		if first == nil {
			first = results
			continue
		}
		assert.Equal(t, first, results)
	}

	// Highest score first, then ties broken by collection, document, index.
	assert.Equal(t, "h3", first[0].ChunkID)
	assert.Equal(t, "h2", first[1].ChunkID)
	assert.Equal(t, "h1", first[2].ChunkID)
	assert.Equal(t, "l1", first[3].ChunkID)
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedding := []float32{0.1, 0.2, 0.3}
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)

	many := make([]domain.RetrievalResult, 4)
	for i := range many {
		many[i] = domain.RetrievalResult{
			ChunkID:    string(rune('a' + i)),
			Collection: domain.CollectionHistorical,
			ChunkIndex: i,
			Score:      float32(1) - float32(i)*0.1,
		}
	}
	searcher.On("Search", mock.Anything, domain.CollectionHistorical, embedding, 4).Return(many, nil)
	searcher.On("Search", mock.Anything, domain.CollectionLive, embedding, 4).Return(many, nil)

	svc := newTestRetrieval(embedder, searcher)
	results, err := svc.Retrieve(context.Background(), "non-compete", nil, 0)

	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestRetrieveExplicitK(t *testing.T) {
	embedder := new(mockEmbedder)
	searcher := new(mockSearcher)

	embedding := []float32{0.1, 0.2, 0.3}
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
	searcher.On("Search", mock.Anything, domain.CollectionHistorical, embedding, 2).Return([]domain.RetrievalResult{
		{ChunkID: "h1", Collection: domain.CollectionHistorical, Score: 0.9},
		{ChunkID: "h2", Collection: domain.CollectionHistorical, Score: 0.8},
	}, nil)

	svc := newTestRetrieval(embedder, searcher)
	results, err := svc.Retrieve(context.Background(), "escrow terms", []domain.SourceType{domain.SourceTypeStatic}, 2)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBudgetContext(t *testing.T) {
	results := []domain.RetrievalResult{
		{ChunkID: "a", Excerpt: strings.Repeat("x", 900)},
		{ChunkID: "b", Excerpt: strings.Repeat("y", 900)},
		{ChunkID: "c", Excerpt: strings.Repeat("z", 900)},
	}

	kept := BudgetContext(results, 2000)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ChunkID)
	assert.Equal(t, "b", kept[1].ChunkID)
}

func TestBudgetContextAlwaysKeepsFirst(t *testing.T) {
	results := []domain.RetrievalResult{
		{ChunkID: "a", Excerpt: strings.Repeat("x", 3000)},
		{ChunkID: "b", Excerpt: "short"},
	}

	kept := BudgetContext(results, 2000)
	require.Len(t, kept, 1)
	assert.Equal(t, "a", kept[0].ChunkID)
}

func TestBudgetContextNoBudget(t *testing.T) {
	results := []domain.RetrievalResult{{ChunkID: "a"}, {ChunkID: "b"}}
	assert.Equal(t, results, BudgetContext(results, 0))
	assert.Empty(t, BudgetContext(nil, 100))
}
