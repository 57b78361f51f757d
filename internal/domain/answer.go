package domain

import "time"

// RetrievalResult references a stored chunk returned by a similarity search,
// with its score and the provenance needed for citation.
type RetrievalResult struct {
	ChunkID      string
	DocumentID   string
	Collection   string
	SourceType   SourceType
	ChunkIndex   int
	Score        float32
	Excerpt      string
	Label        string // provenance label, e.g. "AAPL • 2024-02-20"
	ContractType ContractType
	FiledAt      time.Time
}

// SynthesizedAnswer is the terminal value of answer synthesis. Every
// synthesis outcome, including all failure modes, resolves to one of these;
// synthesis never propagates an error to the caller.
type SynthesizedAnswer struct {
	Answer        string
	Degraded      bool
	FailureReason string // domain error code when degraded, empty otherwise
	Context       []RetrievalResult
}
