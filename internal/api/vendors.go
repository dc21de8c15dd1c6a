package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/store"
)

// VendorsHandler handles vendor directory endpoints. Vendors are plain
// reference data, so the handler talks to the store directly.
type VendorsHandler struct {
	store *store.Store
	audit *audit.Recorder
}

// NewVendorsHandler creates a new VendorsHandler.
func NewVendorsHandler(s *store.Store, rec *audit.Recorder) *VendorsHandler {
	return &VendorsHandler{store: s, audit: rec}
}

// List handles GET /api/v1/vendors.
func (h *VendorsHandler) List(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.store.ListVendors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"vendors": vendors})
}

// Get handles GET /api/v1/vendors/{id}.
func (h *VendorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid vendor ID")
		return
	}

	vendor, err := h.store.GetVendor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"vendor": vendor})
}

// Create handles POST /api/v1/vendors.
func (h *VendorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing name")
		return
	}

	vendor := &models.Vendor{
		Name:    req.Name,
		Contact: req.Contact,
		Notes:   req.Notes,
	}
	if err := h.store.CreateVendor(r.Context(), vendor); err != nil {
		writeError(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Event{
		Action:   "vendor.create",
		Entity:   "vendor",
		EntityID: strconv.FormatInt(vendor.ID, 10),
		After:    audit.JSON(vendor),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{"vendor": vendor})
}
