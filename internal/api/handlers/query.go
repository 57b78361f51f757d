package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parchment-ai/parchment/internal/api"
	"github.com/parchment-ai/parchment/internal/domain"
)

type AnswerProvider interface {
	Answer(ctx context.Context, query string, sources []domain.SourceType, topK int) (*domain.SynthesizedAnswer, error)
}

type QueryHandler struct {
	answers AnswerProvider
}

func NewQueryHandler(answers AnswerProvider) *QueryHandler {
	return &QueryHandler{answers: answers}
}

type QueryRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources,omitempty"`
	TopK    int      `json:"top_k,omitempty"`
}

type CitationResponse struct {
	Label        string  `json:"label"`
	Collection   string  `json:"collection"`
	SourceType   string  `json:"source_type"`
	ContractType string  `json:"contract_type,omitempty"`
	Excerpt      string  `json:"excerpt"`
	Score        float32 `json:"score"`
	DocumentID   string  `json:"document_id"`
	ChunkIndex   int     `json:"chunk_index"`
}

type QueryResponse struct {
	Answer        string             `json:"answer"`
	Degraded      bool               `json:"degraded"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Citations     []CitationResponse `json:"citations"`
}

// Ask handles POST /query
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sources := make([]domain.SourceType, len(req.Sources))
	for i, src := range req.Sources {
		sources[i] = domain.SourceType(src)
	}

	answer, err := h.answers.Answer(r.Context(), req.Query, sources, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := QueryResponse{
		Answer:        answer.Answer,
		Degraded:      answer.Degraded,
		FailureReason: answer.FailureReason,
		Citations:     make([]CitationResponse, 0, len(answer.Context)),
	}
	for _, res := range answer.Context {
		resp.Citations = append(resp.Citations, CitationResponse{
			Label:        res.Label,
			Collection:   res.Collection,
			SourceType:   string(res.SourceType),
			ContractType: string(res.ContractType),
			Excerpt:      res.Excerpt,
			Score:        res.Score,
			DocumentID:   res.DocumentID,
			ChunkIndex:   res.ChunkIndex,
		})
	}

	api.Success(w, http.StatusOK, resp)
}
