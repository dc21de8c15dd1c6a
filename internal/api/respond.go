package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/smallbooks/bookkeeper/internal/errs"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, error, description string) {
	writeJSON(w, status, ErrorResponse{
		Error:            error,
		ErrorDescription: description,
	})
}

// writeError maps a domain error onto an HTTP status. Untyped errors become
// opaque 500s so store internals never reach clients.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindDuplicate:
		status = http.StatusConflict
	case errs.KindInvariant:
		status = http.StatusUnprocessableEntity
	case errs.KindTransient:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeJSONError(w, status, "server_error", "Unexpected server error")
		return
	}
	writeJSONError(w, status, errs.CodeOf(err), err.Error())
}
