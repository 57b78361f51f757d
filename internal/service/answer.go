package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/parchment-ai/parchment/internal/domain"
)

// Generator produces answer text from a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever finds relevant chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, sources []domain.SourceType, k int) ([]domain.RetrievalResult, error)
}

// QueryLogEntry records one answered query.
type QueryLogEntry struct {
	Query         string
	Sources       string
	ResultCount   int
	Degraded      bool
	FailureReason string
	DurationMs    int64
}

// QueryLogRecorder persists query log entries. Logging is best effort and
// never affects the answer returned to the caller.
type QueryLogRecorder interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
}

const noResultsAnswer = "No relevant contract provisions were found for this query."

// AnswerService turns a question into a SynthesizedAnswer. Synthesis never
// returns an error for generation failures: every failure mode degrades to
// an extractive answer built from the retrieved context, with the failure
// recorded in FailureReason.
type AnswerService struct {
	retriever     Retriever
	generator     Generator
	queryLog      QueryLogRecorder
	contextBudget int
}

func NewAnswerService(retriever Retriever, generator Generator, queryLog QueryLogRecorder, contextBudget int) *AnswerService {
	if contextBudget <= 0 {
		contextBudget = 2000
	}
	return &AnswerService{
		retriever:     retriever,
		generator:     generator,
		queryLog:      queryLog,
		contextBudget: contextBudget,
	}
}

// Answer validates the query, retrieves context and synthesizes an answer.
// The only error it returns is validation of the query itself; everything
// downstream resolves to a SynthesizedAnswer.
func (s *AnswerService) Answer(ctx context.Context, query string, sources []domain.SourceType, topK int) (*domain.SynthesizedAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	for _, src := range sources {
		if !domain.IsValidSourceType(string(src)) {
			return nil, domain.ErrInvalidSourceType
		}
	}

	start := time.Now()
	answer := s.synthesize(ctx, query, sources, topK)
	s.record(ctx, query, sources, answer, time.Since(start))
	return answer, nil
}

func (s *AnswerService) synthesize(ctx context.Context, query string, sources []domain.SourceType, topK int) *domain.SynthesizedAnswer {
	results, err := s.retriever.Retrieve(ctx, query, sources, topK)
	if err != nil {
		log.Printf("answer: retrieval failed: %v", err)
		return &domain.SynthesizedAnswer{
			Answer:        "Retrieval is unavailable, so no answer could be produced.",
			Degraded:      true,
			FailureReason: domain.ErrorCode(err),
		}
	}

	if len(results) == 0 {
		return &domain.SynthesizedAnswer{Answer: noResultsAnswer}
	}

	kept := BudgetContext(results, s.contextBudget)
	prompt := BuildPrompt(query, kept)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("answer: generation failed: %v", err)
		return &domain.SynthesizedAnswer{
			Answer:        extractiveAnswer(kept, err),
			Degraded:      true,
			FailureReason: domain.ErrorCode(err),
			Context:       kept,
		}
	}

	return &domain.SynthesizedAnswer{
		Answer:  strings.TrimSpace(text),
		Context: kept,
	}
}

func (s *AnswerService) record(ctx context.Context, query string, sources []domain.SourceType, answer *domain.SynthesizedAnswer, elapsed time.Duration) {
	if s.queryLog == nil {
		return
	}

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = string(src)
	}

	entry := QueryLogEntry{
		Query:         query,
		Sources:       strings.Join(names, ","),
		ResultCount:   len(answer.Context),
		Degraded:      answer.Degraded,
		FailureReason: answer.FailureReason,
		DurationMs:    elapsed.Milliseconds(),
	}
	if _, err := s.queryLog.CreateQueryLog(ctx, entry); err != nil {
		log.Printf("answer: failed to record query log: %v", err)
	}
}

// BuildPrompt assembles the generation prompt: an instruction pinning the
// model to the supplied excerpts, the excerpts with provenance labels, then
// the question.
func BuildPrompt(query string, results []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("You are a legal research assistant. Answer the question using only the contract excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say so. Cite excerpts by their bracketed label.\n\n")

	for _, res := range results {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", res.Label, res.Excerpt)
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

// extractiveAnswer is the degraded-mode fallback: a deterministic summary
// assembled from the retrieved excerpts, prefixed with why generation was
// skipped.
func extractiveAnswer(results []domain.RetrievalResult, cause error) string {
	var b strings.Builder
	var domainErr *domain.DomainError
	switch {
	case errors.Is(cause, domain.ErrNoGenerationCredential):
		b.WriteString("Generation is not configured; showing the most relevant excerpts instead.\n\n")
	case errors.Is(cause, domain.ErrModelWarmingUp):
		b.WriteString("The generation model is still loading; showing the most relevant excerpts instead.\n\n")
	case errors.As(cause, &domainErr):
		fmt.Fprintf(&b, "Generation failed (%s); showing the most relevant excerpts instead.\n\n", domainErr.Message)
	default:
		b.WriteString("Generation failed; showing the most relevant excerpts instead.\n\n")
	}

	for _, res := range results {
		fmt.Fprintf(&b, "[%s] %s\n\n", res.Label, res.Excerpt)
	}
	return strings.TrimSpace(b.String())
}
