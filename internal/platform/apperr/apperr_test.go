package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUpstream, http.StatusBadGateway},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}

func TestSentinelMatchesAfterWrap(t *testing.T) {
	sentinel := NotFound("Target user not found")
	wrapped := fmt.Errorf("share: %w", sentinel)

	if !errors.Is(wrapped, sentinel) {
		t.Error("expected errors.Is to match wrapped sentinel")
	}
	if errors.Is(wrapped, NotFound("Patient not found")) {
		t.Error("expected different message not to match")
	}
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("expected not_found kind, got %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("expected plain errors to be internal")
	}
}

func serve(t *testing.T, handlerErr error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	e.GET("/x", func(c echo.Context) error { return handlerErr })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestHTTPErrorHandler_Validation(t *testing.T) {
	rec, body := serve(t, Validation("Search query too short"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if body["message"] != "Search query too short" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHTTPErrorHandler_Details(t *testing.T) {
	err := Validation("Invalid category").WithDetails(map[string]interface{}{
		"validCategories": []string{"prevention"},
	})
	rec, body := serve(t, err)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if _, ok := body["validCategories"]; !ok {
		t.Error("expected validCategories in body")
	}
}

func TestHTTPErrorHandler_InternalHidesCause(t *testing.T) {
	rec, body := serve(t, Internal("load account", errors.New("pq: connection refused")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body["message"] != "Server error" {
		t.Errorf("expected generic message, got %v", body["message"])
	}
}

func TestHTTPErrorHandler_EchoError(t *testing.T) {
	rec, body := serve(t, echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if body["message"] != "rate limit exceeded" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHTTPErrorHandler_Upstream(t *testing.T) {
	rec, _ := serve(t, Upstream("Classification service unavailable", errors.New("timeout")))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}
