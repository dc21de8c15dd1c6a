package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// AccountsHandler handles account directory endpoints.
type AccountsHandler struct {
	dir    *accounts.Directory
	poster *ledger.Poster
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(dir *accounts.Directory, poster *ledger.Poster) *AccountsHandler {
	return &AccountsHandler{dir: dir, poster: poster}
}

// List handles GET /api/v1/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	accts, err := h.dir.List(r.Context(), includeDeleted)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accts})
}

// Lookup handles GET /api/v1/accounts/lookup. Exactly one of the code or
// name query parameters selects the account; name matching is
// case-insensitive.
func (h *AccountsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")

	var (
		acc *models.Account
		err error
	)
	switch {
	case code != "":
		acc, err = h.dir.GetByCode(r.Context(), code)
	case name != "":
		acc, err = h.dir.GetByName(r.Context(), name)
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Provide a code or name query parameter")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"account": acc})
}

// Get handles GET /api/v1/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account ID")
		return
	}

	acc, err := h.dir.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"account": acc})
}

// Create handles POST /api/v1/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	acc, err := h.dir.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"account": acc})
}

// Update handles PUT /api/v1/accounts/{id}.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account ID")
		return
	}

	var req models.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	acc, err := h.dir.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"account": acc})
}

// Delete handles DELETE /api/v1/accounts/{id}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account ID")
		return
	}

	if err := h.dir.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BalanceResponse represents the response for GET /api/v1/accounts/{id}/balance.
type BalanceResponse struct {
	AccountID int64  `json:"account_id"`
	AsOf      string `json:"as_of,omitempty"`
	Balance   string `json:"balance"`
}

// Balance handles GET /api/v1/accounts/{id}/balance. Without as_of the
// balance covers every posted line.
func (h *AccountsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account ID")
		return
	}

	asOf := r.URL.Query().Get("as_of")
	if asOf != "" && !models.ValidDate(asOf) {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "as_of must be a YYYY-MM-DD date")
		return
	}

	balance, err := h.dir.BalanceAsOf(r.Context(), id, asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: id,
		AsOf:      asOf,
		Balance:   money.String(balance),
	})
}

// Ledger handles GET /api/v1/accounts/{id}/ledger.
func (h *AccountsHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account ID")
		return
	}

	// 404 on unknown accounts rather than an empty ledger.
	if _, err := h.dir.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	lines, err := h.poster.Ledger(r.Context(), store.LedgerFilter{
		AccountID: id,
		From:      r.URL.Query().Get("from"),
		To:        r.URL.Query().Get("to"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}
