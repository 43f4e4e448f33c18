package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/internal/platform/middleware"
	"github.com/footcare/footcare/pkg/pagination"
)

func newTestHandler() (*Handler, *mockReadingRepo, *echo.Echo) {
	svc, repo, _ := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func patientContext(e *echo.Echo, method, target, body string, accountID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if accountID != uuid.Nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: accountID, Role: auth.RolePatient}))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return out
}

func TestHandler_Ingest(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()

	c, rec := patientContext(e, http.MethodPost, "/api/sensor-data",
		`{"temperature":31.2,"humidity":48,"userId":"`+id.String()+`"}`, uuid.Nil)
	if err := h.Ingest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["message"] != MessageSaved {
		t.Errorf("unexpected message %v", body["message"])
	}
	data, _ := body["data"].(map[string]interface{})
	if data["deviceId"] != DefaultDeviceID || data["userId"] != id.String() {
		t.Errorf("unexpected data %v", data)
	}
}

func TestHandler_IngestMissingFields(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := patientContext(e, http.MethodPost, "/api/sensor-data", `{"humidity":48}`, uuid.Nil)

	err := h.Ingest(c)
	if !errors.Is(err, ErrMeasurementsRequired) {
		t.Fatalf("expected ErrMeasurementsRequired, got %v", err)
	}
	if apperr.KindOf(err).HTTPStatus() != http.StatusBadRequest {
		t.Errorf("expected 400 mapping")
	}
}

func TestHandler_IngestThrottled(t *testing.T) {
	repo := newMockReadingRepo()
	h := NewHandler(NewService(repo, middleware.NewMemoryLimiter(1, time.Minute), nil, zerolog.Nop()))
	e := echo.New()
	id := repo.addAccount()
	body := `{"temperature":31.2,"humidity":48,"userId":"` + id.String() + `"}`

	c, _ := patientContext(e, http.MethodPost, "/api/sensor-data", body, uuid.Nil)
	if err := h.Ingest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, rec := patientContext(e, http.MethodPost, "/api/sensor-data", body, uuid.Nil)
	err := h.Ingest(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestHandler_LatestEmpty(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()

	c, rec := patientContext(e, http.MethodGet, "/api/sensor-data/latest", "", id)
	if err := h.Latest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["message"] != MessageNoData || body["data"] != nil {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_HistoryLimitTooLarge(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()

	c, _ := patientContext(e, http.MethodGet, "/api/sensor-data/history?limit=101", "", id)
	if err := h.History(c); !errors.Is(err, pagination.ErrLimitTooLarge) {
		t.Errorf("expected ErrLimitTooLarge, got %v", err)
	}
}

func TestHandler_HistoryPageOverflow(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()

	c, _ := patientContext(e, http.MethodGet, "/api/sensor-data/history?page=9223372036854775807&limit=50", "", id)
	if err := h.History(c); !errors.Is(err, pagination.ErrPageTooLarge) {
		t.Errorf("expected ErrPageTooLarge, got %v", err)
	}
}

func TestHandler_History(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()
	for i := 0; i < 3; i++ {
		h.svc.Ingest(context.Background(), IngestInput{Temperature: f(30), Humidity: f(40), UserID: id.String()})
	}

	c, rec := patientContext(e, http.MethodGet, "/api/sensor-data/history?limit=2", "", id)
	if err := h.History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, rec)
	nav, _ := body["pagination"].(map[string]interface{})
	if nav["totalRecords"] != float64(3) || nav["hasNext"] != true || nav["hasPrev"] != false {
		t.Errorf("unexpected pagination %v", nav)
	}
	if items, _ := body["data"].([]interface{}); len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestHandler_StatsEmpty(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()

	c, rec := patientContext(e, http.MethodGet, "/api/sensor-data/stats", "", id)
	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, rec)
	if body["message"] != MessageNoStats {
		t.Errorf("unexpected message %v", body["message"])
	}
	data, _ := body["data"].(map[string]interface{})
	if data["totalReadings"] != float64(0) {
		t.Errorf("expected zero readings, got %v", data)
	}
}

func TestHandler_DeleteMalformedID(t *testing.T) {
	h, repo, e := newTestHandler()
	id := repo.addAccount()

	c, _ := patientContext(e, http.MethodDelete, "/api/sensor-data/x", "", id)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.Delete(c); !errors.Is(err, ErrReadingNotFound) {
		t.Errorf("expected ErrReadingNotFound, got %v", err)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, e := newTestHandler()
	authn := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	h.RegisterRoutes(e.Group("/api/sensor-data"), authn)

	want := map[string]bool{
		"POST /api/sensor-data":        false,
		"GET /api/sensor-data/latest":  false,
		"GET /api/sensor-data/history": false,
		"GET /api/sensor-data/stats":   false,
		"DELETE /api/sensor-data/:id":  false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}
