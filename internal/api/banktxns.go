package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smallbooks/bookkeeper/internal/importer"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// BankTxnsHandler handles bank statement endpoints.
type BankTxnsHandler struct {
	store    *store.Store
	importer *importer.Service
}

// NewBankTxnsHandler creates a new BankTxnsHandler.
func NewBankTxnsHandler(s *store.Store, svc *importer.Service) *BankTxnsHandler {
	return &BankTxnsHandler{store: s, importer: svc}
}

// List handles GET /api/v1/bank-transactions.
func (h *BankTxnsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.BankTxnFilter{
		From: q.Get("from"),
		To:   q.Get("to"),
	}

	if s := q.Get("account_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account_id")
			return
		}
		f.AccountID = id
	}

	txns, err := h.store.ListBankTransactions(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bank_transactions": txns})
}

// Get handles GET /api/v1/bank-transactions/{id}.
func (h *BankTxnsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bank transaction ID")
		return
	}

	txn, err := h.store.GetBankTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bank_transaction": txn})
}

// Create handles POST /api/v1/bank-transactions, a single hand-entered
// statement line.
func (h *BankTxnsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBankTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	txn, err := h.importer.Add(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"bank_transaction": txn})
}

// Import handles POST /api/v1/bank-transactions/import. The body is the
// raw statement export; account_id and format are query parameters.
func (h *BankTxnsHandler) Import(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid account_id")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing format")
		return
	}

	result, err := h.importer.Import(r.Context(), accountID, format, r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
