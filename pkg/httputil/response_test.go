package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/genenetwork/gn-auth/pkg/auth"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusForbidden, "forbidden", "no migrate-data scope")

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	body := decodeError(t, rec)
	if body.Error != "forbidden" {
		t.Errorf("expected error code %q, got %q", "forbidden", body.Error)
	}
	if body.ErrorDescription != "no migrate-data scope" {
		t.Errorf("unexpected description: %q", body.ErrorDescription)
	}
}

func TestWriteAuthError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "token error",
			err:        auth.NewTokenError(auth.CodeMissingAuthorization, "no bearer token"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   auth.CodeMissingAuthorization,
		},
		{
			name:       "not found",
			err:        auth.NewNotFoundError("no such group"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "forbidden",
			err:        auth.NewForbiddenAccess("client not allowed"),
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "generic",
			err:        json.Unmarshal([]byte("{"), &struct{}{}),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAuthError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decodeError(t, rec); body.Error != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, body.Error)
			}
		})
	}
}

func TestWriteUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnavailable(rec, "the data migration service is currently unavailable")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error != "Unavailable" {
		t.Errorf("expected error %q, got %q", "Unavailable", body.Error)
	}
	if body.ErrorDescription == "" {
		t.Error("expected a description")
	}
}

func TestWriteJSONOrErrorEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOrError(rec, http.StatusOK, map[string]interface{}{"ch": make(chan int)}, "failed to encode")

	// The 200 header must not have gone out before the encode failed.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "authorisation_error" {
		t.Errorf("expected code %q, got %q", "authorisation_error", body.Error)
	}
}

func TestWriteJSONEncodeFailureWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSON(rec, http.StatusOK, make(chan int)); err == nil {
		t.Fatal("expected an encode error")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected an empty body, got %q", rec.Body.String())
	}
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteSuccess(rec, map[string]int{"count": 3}); err != nil {
		t.Fatalf("WriteSuccess failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
