package footanalysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
)

func withPatient(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: id, Role: auth.RolePatient}))
}

func TestHandler_Submit(t *testing.T) {
	svc, _, _ := newTestService(&fakeClassifier{pred: &Prediction{Label: "Healthy", Confidence: 0.8}})
	h := NewHandler(svc)
	e := echo.New()

	body, contentType := multipartBody(t, pngBytes)
	req := withPatient(httptest.NewRequest(http.MethodPost, "/FootAnalysis", body), uuid.New())
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["success"] != true {
		t.Errorf("expected success envelope, got %v", out)
	}
	data, _ := out["data"].(map[string]interface{})
	if data["result"] != "Healthy" || data["imageUrl"] == "" {
		t.Errorf("unexpected data %v", data)
	}
}

func TestHandler_SubmitWithoutFile(t *testing.T) {
	svc, _, _ := newTestService(&fakeClassifier{})
	h := NewHandler(svc)
	e := echo.New()

	req := withPatient(httptest.NewRequest(http.MethodPost, "/FootAnalysis", nil), uuid.New())
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Submit(c)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_SubmitUpstreamFailure(t *testing.T) {
	svc, _, _ := newTestService(&fakeClassifier{err: ErrClassifierUnavailable})
	h := NewHandler(svc)
	e := echo.New()

	body, contentType := multipartBody(t, pngBytes)
	req := withPatient(httptest.NewRequest(http.MethodPost, "/FootAnalysis", body), uuid.New())
	req.Header.Set(echo.HeaderContentType, contentType)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Submit(c)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind.HTTPStatus() != http.StatusBadGateway {
		t.Errorf("expected 502 error, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	svc, _, _ := newTestService(&fakeClassifier{})
	h := NewHandler(svc)
	e := echo.New()

	req := withPatient(httptest.NewRequest(http.MethodGet, "/FootAnalysis", nil), uuid.New())
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["success"] != true {
		t.Errorf("expected success envelope, got %v", out)
	}
	if data, ok := out["data"].([]interface{}); !ok || len(data) != 0 {
		t.Errorf("expected empty array, got %v", out["data"])
	}
}
