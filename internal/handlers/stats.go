package handlers

import (
	"net/http"

	"github.com/nlazzarini/vetclinic/internal/storage"
)

type StatsHandler struct {
	stats *storage.StatsRepository
}

func NewStatsHandler(stats *storage.StatsRepository) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Overview serves the 60-day activity dashboard.
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ov, err := h.stats.Overview(r.Context())
	if err != nil {
		http.Error(w, "failed to compute statistics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
