package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dmo/internal/core"
	"dmo/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes: not-found to 404,
// validation (duplicate name, bad range, bad fields) to 400, anything else
// to 500 with the detail kept out of the response body. Failures are logged
// with the request-scoped logger so the request id travels with them.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case core.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger := log.FromContext(r.Context())
		var se *core.StorageError
		if errors.As(err, &se) {
			logger.ErrorContext(r.Context(), "Storage failure", "op", se.Op, "error", se.Err)
		} else {
			logger.ErrorContext(r.Context(), "Unhandled error", "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
