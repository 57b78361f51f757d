package service

import (
	"context"

	"github.com/parchment-ai/parchment/internal/domain"
)

// DocumentCounter reports document counts per collection and the
// contract-type distribution.
type DocumentCounter interface {
	CountByCollection(ctx context.Context, collection string) (int, error)
	ContractTypeCounts(ctx context.Context) (map[string]int, error)
}

// ChunkCounter reports stored chunk counts per collection.
type ChunkCounter interface {
	CountByCollection(ctx context.Context, collection string) (int, error)
}

// CollectionStats is the size of one vector store collection.
type CollectionStats struct {
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
}

// Stats summarizes the stored corpus.
type Stats struct {
	Collections   []CollectionStats `json:"collections"`
	ContractTypes map[string]int    `json:"contract_types"`
}

// StatsService aggregates store-level counters for the stats endpoint and
// the CLI status command.
type StatsService struct {
	documents DocumentCounter
	chunks    ChunkCounter
}

func NewStatsService(documents DocumentCounter, chunks ChunkCounter) *StatsService {
	return &StatsService{documents: documents, chunks: chunks}
}

func (s *StatsService) Collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	for _, collection := range []string{domain.CollectionHistorical, domain.CollectionLive} {
		docs, err := s.documents.CountByCollection(ctx, collection)
		if err != nil {
			return nil, err
		}
		chunks, err := s.chunks.CountByCollection(ctx, collection)
		if err != nil {
			return nil, err
		}
		stats.Collections = append(stats.Collections, CollectionStats{
			Collection: collection,
			Documents:  docs,
			Chunks:     chunks,
		})
	}

	types, err := s.documents.ContractTypeCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats.ContractTypes = types

	return stats, nil
}
