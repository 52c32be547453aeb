package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/services"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	body := map[string]any{"success": false, "error": msg}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// writeServiceError maps service errors to statuses. Internal error text is
// only exposed when verbose is set.
func writeServiceError(w http.ResponseWriter, err error, verbose bool) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation failed", verr.Fields)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrAgentExists):
		writeError(w, http.StatusConflict, "agent already exists", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
	default:
		log.Printf("[http] internal error: %v", err)
		msg := "internal server error"
		if verbose {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg, nil)
	}
}

// decodeJSON reads a JSON body into dst. It returns errEmptyBody when the
// request carries no body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func fieldError(field, msg string) []services.FieldError {
	return []services.FieldError{{Field: field, Message: msg}}
}
