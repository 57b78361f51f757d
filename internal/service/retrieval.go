package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parchment-ai/parchment/internal/domain"
)

// VectorSearcher serves similarity queries against one collection.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, embedding []float32, k int) ([]domain.RetrievalResult, error)
}

// RetrievalConfig bounds retrieval work per request.
type RetrievalConfig struct {
	TopK          int
	SearchTimeout time.Duration
}

// RetrievalService embeds a query once and fans it out across the requested
// collections. A failed collection contributes nothing instead of failing
// the request; results from the surviving collections are merged into one
// deterministic ranking.
type RetrievalService struct {
	embedder EmbeddingClient
	searcher VectorSearcher
	cfg      RetrievalConfig
}

func NewRetrievalService(embedder EmbeddingClient, searcher VectorSearcher, cfg RetrievalConfig) *RetrievalService {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 5 * time.Second
	}
	return &RetrievalService{embedder: embedder, searcher: searcher, cfg: cfg}
}

// Retrieve returns the top-k chunks across the given sources for the query.
// A non-positive k falls back to the configured default. An empty or
// whitespace query returns no results without touching the store. Embedding
// failure is returned to the caller; it is the one error retrieval cannot
// degrade around, since no collection can be searched without a vector.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, sources []domain.SourceType, k int) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	if len(sources) == 0 {
		sources = []domain.SourceType{domain.SourceTypeStatic, domain.SourceTypeLive}
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	collections := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		collection := domain.CollectionForSource(src)
		if !seen[collection] {
			seen[collection] = true
			collections = append(collections, collection)
		}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []domain.RetrievalResult
	)
	for _, collection := range collections {
		wg.Add(1)
		go func(collection string) {
			defer wg.Done()

			searchCtx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
			defer cancel()

			found, err := s.searcher.Search(searchCtx, collection, embedding, k)
			if err != nil {
				log.Printf("retrieval: collection=%s search failed: %v", collection, err)
				return
			}

			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
		}(collection)
	}
	wg.Wait()

	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// sortResults orders merged results by score descending with full tie-breaks
// so the same stored state always produces the same ranking.
func sortResults(results []domain.RetrievalResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Collection != b.Collection {
			return a.Collection < b.Collection
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}

// BudgetContext keeps results in rank order until their combined excerpt
// length exceeds budgetChars. The first result is always kept, even when it
// alone exceeds the budget, so synthesis never runs with an empty context
// when retrieval found something.
func BudgetContext(results []domain.RetrievalResult, budgetChars int) []domain.RetrievalResult {
	if budgetChars <= 0 || len(results) == 0 {
		return results
	}

	kept := make([]domain.RetrievalResult, 0, len(results))
	used := 0
	for i, res := range results {
		size := len([]rune(res.Excerpt))
		if i > 0 && used+size > budgetChars {
			break
		}
		kept = append(kept, res)
		used += size
	}
	return kept
}
