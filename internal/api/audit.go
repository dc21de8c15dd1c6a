package api

import (
	"net/http"
	"strconv"

	"github.com/smallbooks/bookkeeper/internal/audit"
)

// AuditHandler exposes the audit trail read-only.
type AuditHandler struct {
	rec *audit.Recorder
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(rec *audit.Recorder) *AuditHandler {
	return &AuditHandler{rec: rec}
}

// List handles GET /api/v1/audit/events, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		Entity: q.Get("entity"),
		Action: q.Get("action"),
		Actor:  q.Get("actor"),
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit")
			return
		}
		f.Limit = limit
	}

	events, err := h.rec.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
