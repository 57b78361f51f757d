package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/parchment-ai/parchment/internal/api"
	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/pagination"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type DocumentReader interface {
	ListByCollection(ctx context.Context, collection string, cursor *pagination.Cursor, limit int) ([]*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

type DocumentHandler struct {
	documents DocumentReader
}

func NewDocumentHandler(documents DocumentReader) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type DocumentResponse struct {
	ID           string `json:"id"`
	SourceID     string `json:"source_id"`
	Collection   string `json:"collection"`
	SourceType   string `json:"source_type"`
	ContractType string `json:"contract_type"`
	Ticker       string `json:"ticker,omitempty"`
	Company      string `json:"company,omitempty"`
	FiledAt      string `json:"filed_at,omitempty"`
	Origin       string `json:"origin"`
	CharLength   int    `json:"char_length"`
	CreatedAt    string `json:"created_at"`
}

func toDocumentResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:           d.ID,
		SourceID:     d.SourceID,
		Collection:   d.Collection(),
		SourceType:   string(d.SourceType),
		ContractType: string(d.ContractType),
		Ticker:       d.Ticker,
		Company:      d.Company,
		Origin:       d.Origin,
		CharLength:   d.CharLength,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !d.FiledAt.IsZero() {
		resp.FiledAt = d.FiledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// List handles GET /documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = domain.CollectionHistorical
	}
	if collection != domain.CollectionHistorical && collection != domain.CollectionLive {
		api.Error(w, http.StatusBadRequest, "unknown collection")
		return
	}

	limit := defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	docs, err := h.documents.ListByCollection(r.Context(), collection, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, toDocumentResponse(d))
	}

	next := pagination.CreateNextCursor(docs, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt })

	api.Success(w, http.StatusOK, pagination.PageResult[*DocumentResponse]{
		Items:   items,
		Cursor:  next,
		HasMore: next != "",
	})
}

// Get handles GET /documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "missing document id")
		return
	}

	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toDocumentResponse(doc))
}
