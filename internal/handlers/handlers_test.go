package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JumajiCa/ChatDVC/internal/middleware"
	"github.com/JumajiCa/ChatDVC/internal/models"
	"github.com/JumajiCa/ChatDVC/internal/services"
)

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Error
}

// ─── Auth Handler Tests ───

func TestRegisterHandler_InvalidJSON(t *testing.T) {
	h := NewAuthHandler(services.NewAuthService(nil, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

func TestRegisterHandler_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"missing email", map[string]string{"full_name": "Test", "password": "Pass1234"}, "email"},
		{"missing password", map[string]string{"full_name": "Test", "email": "t@t.com"}, "password"},
		{"missing name", map[string]string{"email": "t@t.com", "password": "Pass1234"}, "full_name"},
	}

	h := NewAuthHandler(services.NewAuthService(nil, nil, nil))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			jsonBody, _ := json.Marshal(tc.body)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(jsonBody))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			h.Register(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rr.Code)
			}
			apiErr := decodeError(t, rr)
			if _, ok := apiErr.Fields[tc.field]; !ok {
				t.Errorf("Expected field error for %q, got %v", tc.field, apiErr.Fields)
			}
		})
	}
}

func TestRefreshHandler_RequiresToken(t *testing.T) {
	h := NewAuthHandler(services.NewAuthService(nil, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
}

// ─── JSON Response Tests ───

func TestErrorResponse_CarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")

	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid input", req))

	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", rr.Header().Get("Content-Type"))
	}
	apiErr := decodeError(t, rr)
	if apiErr.RequestID != "req-123" || apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Unexpected error body %+v", apiErr)
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&services.ValidationError{Fields: map[string]string{"a": "b"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{&services.ConflictError{Message: "dup"}, http.StatusConflict, "CONFLICT"},
		{&services.NotFoundError{Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{&services.UnauthorizedError{Message: "no"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{&services.ForbiddenError{Message: "no"}, http.StatusForbidden, "FORBIDDEN"},
		{&services.RateLimitError{Message: "slow"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{errors.New("pg: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			if rr.Code != tc.status {
				t.Fatalf("Expected status %d, got %d", tc.status, rr.Code)
			}
			apiErr := decodeError(t, rr)
			if apiErr.Code != tc.code {
				t.Errorf("Expected code %s, got %s", tc.code, apiErr.Code)
			}
			if strings.Contains(apiErr.Message, "connection refused") {
				t.Errorf("Internal error leaked: %q", apiErr.Message)
			}
		})
	}
}
