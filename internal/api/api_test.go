package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veilon/account-service/internal/app"
	"github.com/veilon/account-service/internal/store"
)

func TestHandleServiceErrorMapping(t *testing.T) {
	h := NewAccountHandlers(nil)

	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "account not found", err: fmt.Errorf("account 7: %w", store.ErrAccountNotFound), wantStatus: http.StatusNotFound},
		{name: "plan not found", err: fmt.Errorf("plan 3: %w", store.ErrPlanNotFound), wantStatus: http.StatusUnprocessableEntity},
		{name: "invalid transition", err: fmt.Errorf("%w: set_balance from Closed", store.ErrInvalidTransition), wantStatus: http.StatusConflict},
		{name: "validation", err: fmt.Errorf("%w: phase must be at least 1", app.ErrValidation), wantStatus: http.StatusBadRequest},
		{name: "infrastructure", err: errors.New("connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.handleServiceError(rec, tc.err)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("expected JSON error body: %v", err)
			}
			if body["error"] == "" {
				t.Fatalf("expected error message in body")
			}
		})
	}
}

func TestInternalAPIKeyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	testCases := []struct {
		name       string
		configured string
		provided   string
		wantStatus int
	}{
		{name: "matching key", configured: "secret", provided: "secret", wantStatus: http.StatusOK},
		{name: "missing key", configured: "secret", provided: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", configured: "secret", provided: "nope", wantStatus: http.StatusUnauthorized},
		{name: "check disabled when unconfigured", configured: "", provided: "", wantStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := InternalAPIKeyMiddleware(tc.configured)(next)
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tc.provided != "" {
				req.Header.Set(internalAPIKeyHeader, tc.provided)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}
