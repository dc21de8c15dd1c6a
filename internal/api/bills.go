package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smallbooks/bookkeeper/internal/bills"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// BillsHandler handles bill, payment, and refund endpoints.
type BillsHandler struct {
	manager   *bills.Manager
	allocator *bills.Allocator
}

// NewBillsHandler creates a new BillsHandler.
func NewBillsHandler(m *bills.Manager, a *bills.Allocator) *BillsHandler {
	return &BillsHandler{manager: m, allocator: a}
}

// List handles GET /api/v1/bills.
func (h *BillsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.BillFilter{
		Status:         models.BillStatus(q.Get("status")),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}

	if s := q.Get("vendor_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid vendor_id")
			return
		}
		f.VendorID = id
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit")
			return
		}
		f.Limit = limit
	}

	list, err := h.manager.ListBills(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bills": list})
}

// Get handles GET /api/v1/bills/{id}.
func (h *BillsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	bill, err := h.manager.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bill": bill})
}

// Create handles POST /api/v1/bills.
func (h *BillsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	bill, err := h.manager.CreateBill(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"bill": bill})
}

// Update handles PUT /api/v1/bills/{id}.
func (h *BillsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	var req models.UpdateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	bill, err := h.manager.UpdateBill(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bill": bill})
}

// Delete handles DELETE /api/v1/bills/{id}. Deletion is soft; the bill
// stays on file for history.
func (h *BillsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	if err := h.manager.DeleteBill(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPayments handles GET /api/v1/bills/{id}/payments.
func (h *BillsHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	payments, err := h.allocator.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

// CreatePayment handles POST /api/v1/bills/{id}/payments. The bill in the
// path wins over any bill_id in the body.
func (h *BillsHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	var req models.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	req.BillID = id

	payment, err := h.allocator.CreatePayment(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"payment": payment})
}

// DeletePayment handles DELETE /api/v1/payments/{id}. The bill's paid
// amount and status roll back along with the payment's journal.
func (h *BillsHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid payment ID")
		return
	}

	if err := h.allocator.DeletePayment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRefunds handles GET /api/v1/bills/{id}/refunds.
func (h *BillsHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	refunds, err := h.allocator.ListRefunds(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"refunds": refunds})
}

// CreateRefund handles POST /api/v1/bills/{id}/refunds.
func (h *BillsHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid bill ID")
		return
	}

	var req models.CreateRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	req.BillID = id

	refund, err := h.allocator.CreateRefund(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"refund": refund})
}
