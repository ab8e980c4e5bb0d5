package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"coconut-erp/internal/apperror"
	"coconut-erp/internal/observability/logging"
)

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorResponse extends the apperror envelope with the request id.
type errorResponse struct {
	apperror.Response
	RequestID string `json:"requestId,omitempty"`
}

// writeError resolves err through the error taxonomy and writes its JSON envelope.
// Non-operational errors are masked and logged with their cause.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := apperror.HandleError(err)
	if !apperror.IsOperational(err) {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeStatus(w, status, errorResponse{Response: resp, RequestID: logging.RequestID(r.Context())})
}

// writeJSON writes a success envelope with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeStatus(w, http.StatusOK, successResponse{Success: true, Data: v})
}

func writeCreated(w http.ResponseWriter, v any) {
	writeStatus(w, http.StatusCreated, successResponse{Success: true, Data: v})
}

func writeStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v. It writes the error response and
// returns false on failure with a 400 validation error, including bodies over RequestBodyLimit.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, r, apperror.NewValidation("Corpo da requisição muito grande"))
			return false
		}
		h.writeError(w, r, apperror.NewValidation("JSON inválido: "+err.Error()))
		return false
	}
	return true
}
