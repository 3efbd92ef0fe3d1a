// Package httputil provides HTTP handler utilities for consistent error
// bodies, JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/genenetwork/gn-auth/pkg/auth"
)

// ErrorResponse is the wire shape of every error body
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status code. The payload
// is encoded before the status header goes out, so an encode failure never
// leaves a half-written success response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// WriteError writes a JSON error response with the given status, code and
// description
func WriteError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// WriteAuthError maps an authorisation-layer error onto its HTTP status and
// error code. Unrecognised errors become a 500 authorisation_error.
func WriteAuthError(w http.ResponseWriter, err error) {
	WriteError(w, auth.StatusOf(err), auth.CodeOf(err), err.Error())
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, description string) {
	WriteError(w, http.StatusBadRequest, "bad_request", description)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, description string) {
	WriteError(w, http.StatusNotFound, "not_found", description)
}

// WriteInternalError writes an internal server error response (500)
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusInternalServerError, "authorisation_error", err.Error())
}

// WriteUnavailable writes the unavailable body (503) used when the
// authorisation store is not configured. Sent before token validation, so
// the body leaks nothing about the deployment.
func WriteUnavailable(w http.ResponseWriter, description string) {
	WriteError(w, http.StatusServiceUnavailable, "Unavailable", description)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteJSONOrError writes JSON on success or a 500 on encode failure. Only
// an encode failure falls through to the error body; by then no header has
// been written, so exactly one response goes out either way.
func WriteJSONOrError(w http.ResponseWriter, status int, data interface{}, errMsg string) {
	body, err := json.Marshal(data)
	if err != nil {
		WriteInternalError(w, fmt.Errorf("%s: %w", errMsg, err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
