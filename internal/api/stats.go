package api

import (
	"net/http"

	"github.com/smallbooks/bookkeeper/internal/store"
)

// StatsHandler reports ledger-wide counters.
type StatsHandler struct {
	store *store.Store
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(s *store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
