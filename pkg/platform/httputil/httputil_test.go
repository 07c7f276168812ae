package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "nlportal/pkg/domain-errors"
)

type fakeDownstream struct{ status int }

func (f fakeDownstream) Error() string         { return fmt.Sprintf("registry answered %d", f.status) }
func (f fakeDownstream) DownstreamStatus() int { return f.status }

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("unsupported user type is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeForbidden, "unsupported user type"))
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected status %d, got %d", http.StatusForbidden, w.Code)
		}
	})
}

func TestStatusForDownstream(t *testing.T) {
	tests := []struct {
		upstream int
		want     int
	}{
		{0, http.StatusServiceUnavailable},
		{http.StatusNotFound, http.StatusNotFound},
		{http.StatusUnprocessableEntity, http.StatusUnprocessableEntity},
		{http.StatusUnauthorized, http.StatusBadGateway},
		{http.StatusInternalServerError, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.upstream), func(t *testing.T) {
			status, _ := StatusFor(fmt.Errorf("list zaken: %w", fakeDownstream{status: tt.upstream}))
			if status != tt.want {
				t.Fatalf("expected %d for upstream %d, got %d", tt.want, tt.upstream, status)
			}
		})
	}
}
