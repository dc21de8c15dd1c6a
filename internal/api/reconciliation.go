package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/reconcile"
)

// ReconciliationsHandler handles reconciliation session endpoints.
type ReconciliationsHandler struct {
	engine *reconcile.Engine
}

// NewReconciliationsHandler creates a new ReconciliationsHandler.
func NewReconciliationsHandler(e *reconcile.Engine) *ReconciliationsHandler {
	return &ReconciliationsHandler{engine: e}
}

// List handles GET /api/v1/reconciliations.
func (h *ReconciliationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var accountID int64
	if s := r.URL.Query().Get("account_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account_id")
			return
		}
		accountID = id
	}

	sessions, err := h.engine.ListSessions(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// Get handles GET /api/v1/reconciliations/{id}.
func (h *ReconciliationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	session, err := h.engine.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Create handles POST /api/v1/reconciliations.
func (h *ReconciliationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	session, err := h.engine.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

// Update handles PATCH /api/v1/reconciliations/{id}. Only the period end
// and statement balance can change.
func (h *ReconciliationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	var req models.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	session, err := h.engine.UpdateDetails(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Toggle handles POST /api/v1/reconciliations/{id}/toggle and returns the
// updated running totals.
func (h *ReconciliationsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	var req models.ToggleItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	totals, err := h.engine.Toggle(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"totals": totals})
}

// Totals handles GET /api/v1/reconciliations/{id}/totals.
func (h *ReconciliationsHandler) Totals(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	totals, err := h.engine.Totals(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"totals": totals})
}

// Candidates handles GET /api/v1/reconciliations/{id}/candidates, the full
// working set a reconciliation screen needs.
func (h *ReconciliationsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	candidates, err := h.engine.Candidates(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, candidates)
}

// Items handles GET /api/v1/reconciliations/{id}/items, the persisted
// clearing set.
func (h *ReconciliationsHandler) Items(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	items, err := h.engine.ClearedItems(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Complete handles POST /api/v1/reconciliations/{id}/complete. An empty
// body completes without match groups.
func (h *ReconciliationsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	var req models.CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	session, err := h.engine.Complete(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Reopen handles POST /api/v1/reconciliations/{id}/reopen.
func (h *ReconciliationsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid session ID")
		return
	}

	session, err := h.engine.Reopen(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}
