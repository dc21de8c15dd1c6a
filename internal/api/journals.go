package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// JournalsHandler handles journal posting and retrieval endpoints.
type JournalsHandler struct {
	poster *ledger.Poster
}

// NewJournalsHandler creates a new JournalsHandler.
func NewJournalsHandler(p *ledger.Poster) *JournalsHandler {
	return &JournalsHandler{poster: p}
}

// List handles GET /api/v1/journals.
func (h *JournalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.JournalFilter{
		From:       q.Get("from"),
		To:         q.Get("to"),
		Type:       q.Get("type"),
		SourceType: q.Get("source_type"),
	}

	if s := q.Get("source_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid source_id")
			return
		}
		f.SourceID = id
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit")
			return
		}
		f.Limit = limit
	}

	journals, err := h.poster.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"journals": journals})
}

// Get handles GET /api/v1/journals/{id}.
func (h *JournalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid journal ID")
		return
	}

	journal, err := h.poster.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"journal": journal})
}

// Create handles POST /api/v1/journals. The entry must balance; the poster
// rejects anything else.
func (h *JournalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	entry, err := ledger.FromRequest(req, audit.Actor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	journal, err := h.poster.Post(r.Context(), entry)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"journal": journal})
}

// ReverseJournalRequest asks for a reversing journal. Both fields are
// optional; the date defaults to today.
type ReverseJournalRequest struct {
	EntryDate string `json:"entry_date,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

// Reverse handles POST /api/v1/journals/{id}/reverse.
func (h *JournalsHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid journal ID")
		return
	}

	var req ReverseJournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.EntryDate == "" {
		req.EntryDate = time.Now().Format(models.DateLayout)
	}

	journal, err := h.poster.Reverse(r.Context(), id, req.EntryDate, req.Memo, audit.Actor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"journal": journal})
}
