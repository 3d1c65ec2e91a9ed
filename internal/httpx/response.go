package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/diewo77/energy-bills/internal/errs"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// StatusForKind maps a pipeline error kind onto its HTTP status.
func StatusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindPDFProcessing:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders a pipeline error, including its structured payload
// (missing fields, duplicate attributes, file operation) when present.
func WriteError(w http.ResponseWriter, err error) {
	e := errs.Coerce(err)

	var details any
	switch {
	case len(e.MissingFields) > 0:
		details = map[string]any{"missingFields": e.MissingFields}
	case e.Duplicate != nil:
		details = map[string]any{"duplicateInfo": e.Duplicate}
	case e.Op != "":
		details = map[string]any{"operation": e.Op, "path": e.Path}
	}

	JSON(w, StatusForKind(e.Kind), ErrorResponse{Error: e.Message, Details: details})
}
