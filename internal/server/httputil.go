package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formwizard/pkg/formsapi"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, logger logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Warn("server: encode response")
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, logger logrus.FieldLogger, status int, code, message string) {
	writeJSON(w, logger, status, formsapi.ErrorBody{Error: message, Code: code})
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// storeErrorToHTTP maps store errors to HTTP responses.
func storeErrorToHTTP(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrInvalid):
		writeError(w, logger, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		logger.WithError(err).Error("server: internal error")
		writeError(w, logger, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
