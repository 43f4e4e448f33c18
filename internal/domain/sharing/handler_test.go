package sharing

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

	"github.com/footcare/footcare/internal/domain/account"
	"github.com/footcare/footcare/internal/domain/sensor"
	"github.com/footcare/footcare/internal/platform/auth"
)

// stubReadings returns one fixed reading for every account.
type stubReadings struct{}

func (stubReadings) Create(context.Context, *sensor.Reading) error { return nil }

func (stubReadings) Latest(_ context.Context, accountID uuid.UUID) (*sensor.Reading, error) {
	return &sensor.Reading{ID: uuid.New(), AccountID: accountID, Temperature: 31, Humidity: 40, Timestamp: time.Now()}, nil
}

func (stubReadings) List(context.Context, uuid.UUID, int, int) ([]*sensor.Reading, int, error) {
	return nil, 0, nil
}

func (stubReadings) StatsSince(context.Context, uuid.UUID, time.Time) (*sensor.Stats, error) {
	return &sensor.Stats{TotalReadings: 1, AvgTemperature: 31}, nil
}

func (stubReadings) Delete(context.Context, uuid.UUID, uuid.UUID) (*sensor.Reading, error) {
	return nil, sensor.ErrReadingNotFound
}

func newTestHandler() (*Handler, *fixture, *echo.Echo) {
	f := newFixture()
	readings := sensor.NewService(stubReadings{}, nil, nil, zerolog.Nop())
	return NewHandler(f.svc, readings), f, echo.New()
}

func asPatient(e *echo.Echo, method, target, body string, id uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: id, Role: auth.RolePatient}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Share(t *testing.T) {
	h, f, e := newTestHandler()
	ann := f.accounts.add(account.RolePatient, "Ann")
	bob := f.accounts.add(account.RolePatient, "Bob")

	c, rec := asPatient(e, http.MethodPost, "/users/share", `{"targetUserId":"`+bob.ID.String()+`"}`, ann.ID)
	if err := h.Share(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["message"] != "Data sharing enabled successfully" {
		t.Errorf("unexpected message %v", out["message"])
	}
	target, _ := out["targetUser"].(map[string]interface{})
	shared, _ := target["sharedWithMe"].([]interface{})
	if target["id"] != bob.ID.String() || len(shared) != 1 {
		t.Errorf("unexpected targetUser %v", target)
	}
}

func TestHandler_ShareBadTarget(t *testing.T) {
	h, f, e := newTestHandler()
	ann := f.accounts.add(account.RolePatient, "Ann")

	c, _ := asPatient(e, http.MethodPost, "/users/share", `{}`, ann.ID)
	if err := h.Share(c); !errors.Is(err, ErrTargetRequired) {
		t.Errorf("expected ErrTargetRequired, got %v", err)
	}
	c, _ = asPatient(e, http.MethodPost, "/users/share", `{"targetUserId":"nope"}`, ann.ID)
	if err := h.Share(c); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestHandler_ListGrantors(t *testing.T) {
	h, f, e := newTestHandler()
	ann := f.accounts.add(account.RolePatient, "Ann")
	bob := f.accounts.add(account.RolePatient, "Bob")
	f.svc.Grant(context.Background(), ann.ID, bob.ID)

	c, rec := asPatient(e, http.MethodGet, "/users/shared/users-sharing-with-me", "", bob.ID)
	if err := h.ListGrantors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	users, _ := out["users"].([]interface{})
	if out["count"] != float64(1) || len(users) != 1 {
		t.Fatalf("unexpected body %v", out)
	}
	u := users[0].(map[string]interface{})
	if u["id"] != ann.ID.String() || u["sharedSince"] == nil || u["ProfileImage"] != "/media/ann.png" {
		t.Errorf("unexpected user %v", u)
	}
}

func TestHandler_SearchTooShort(t *testing.T) {
	h, f, e := newTestHandler()
	ann := f.accounts.add(account.RolePatient, "Ann")

	c, _ := asPatient(e, http.MethodGet, "/users/shared/search?search=a", "", ann.ID)
	if err := h.Search(c); !errors.Is(err, ErrQueryTooShort) {
		t.Errorf("expected ErrQueryTooShort, got %v", err)
	}
}

func TestHandler_OwnerLatest(t *testing.T) {
	h, f, e := newTestHandler()
	ann := f.accounts.add(account.RolePatient, "Ann")
	bob := f.accounts.add(account.RolePatient, "Bob")

	c, _ := asPatient(e, http.MethodGet, "/", "", bob.ID)
	c.SetParamNames("ownerId")
	c.SetParamValues(ann.ID.String())
	if err := h.OwnerLatest(c); !errors.Is(err, ErrNoAccess) {
		t.Fatalf("expected ErrNoAccess before grant, got %v", err)
	}

	f.svc.Grant(context.Background(), ann.ID, bob.ID)
	c, rec := asPatient(e, http.MethodGet, "/", "", bob.ID)
	c.SetParamNames("ownerId")
	c.SetParamValues(ann.ID.String())
	if err := h.OwnerLatest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	data, _ := out["data"].(map[string]interface{})
	if out["message"] != sensor.MessageLatest || data["userId"] != ann.ID.String() {
		t.Errorf("unexpected body %v", out)
	}
}

func TestHandler_OwnerStatsMalformedID(t *testing.T) {
	h, f, e := newTestHandler()
	bob := f.accounts.add(account.RolePatient, "Bob")

	c, _ := asPatient(e, http.MethodGet, "/", "", bob.ID)
	c.SetParamNames("ownerId")
	c.SetParamValues("garbage")
	if err := h.OwnerStats(c); !errors.Is(err, ErrNoAccess) {
		t.Errorf("expected ErrNoAccess, got %v", err)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, e := newTestHandler()
	authn := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	h.RegisterRoutes(e.Group("/users"), authn)

	want := []string{
		"POST /users/share",
		"DELETE /users/unshare/:targetUserId",
		"DELETE /users/shared/remove/:targetUserId",
		"GET /users/shared/users-i-can-see",
		"GET /users/shared/users-sharing-with-me",
		"GET /users/shared/search",
		"GET /users/shared/:ownerId/sensor-data/latest",
		"GET /users/shared/:ownerId/sensor-data/stats",
	}
	got := make(map[string]bool)
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, route := range want {
		if !got[route] {
			t.Errorf("route %s not registered", route)
		}
	}
}
