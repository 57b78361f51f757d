package handlers

import (
	"context"
	"net/http"

	"github.com/parchment-ai/parchment/internal/api"
	"github.com/parchment-ai/parchment/internal/service"
)

type StatsProvider interface {
	Collect(ctx context.Context) (*service.Stats, error)
}

type StatsHandler struct {
	stats StatsProvider
}

func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Get handles GET /stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Collect(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
