package sensor

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/pkg/pagination"
)

// Response messages shared with the handlers that expose another account's
// readings.
const (
	MessageSaved   = "Sensor data saved successfully"
	MessageLatest  = "Latest sensor data retrieved successfully"
	MessageNoData  = "No sensor data found for this user"
	MessageHistory = "Sensor history retrieved successfully"
	MessageStats   = "Sensor statistics retrieved successfully"
	MessageNoStats = "No sensor data available for statistics"
	MessageDeleted = "Sensor data deleted successfully"
)

const DefaultHistoryLimit = 50

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the telemetry routes on g. Ingest is open to
// devices; everything else requires a patient token.
func (h *Handler) RegisterRoutes(g *echo.Group, authn echo.MiddlewareFunc) {
	g.POST("", h.Ingest)

	patient := g.Group("", authn, auth.RequireRole(auth.RolePatient))
	patient.GET("/latest", h.Latest)
	patient.GET("/history", h.History)
	patient.GET("/stats", h.Stats)
	patient.DELETE("/:id", h.Delete)
}

func (h *Handler) Ingest(c echo.Context) error {
	var in IngestInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	r, err := h.svc.Ingest(c.Request().Context(), in)
	if err != nil {
		var te *ThrottledError
		if errors.As(err, &te) {
			secs := int(math.Ceil(te.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many sensor readings, slow down")
		}
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": MessageSaved, "data": r})
}

func (h *Handler) Latest(c echo.Context) error {
	ctx := c.Request().Context()
	return LatestJSON(c, h.svc, auth.AccountIDFromContext(ctx))
}

func (h *Handler) History(c echo.Context) error {
	ctx := c.Request().Context()
	return HistoryJSON(c, h.svc, auth.AccountIDFromContext(ctx))
}

func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	return StatsJSON(c, h.svc, auth.AccountIDFromContext(ctx))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrReadingNotFound
	}
	ctx := c.Request().Context()
	r, err := h.svc.Delete(ctx, id, auth.AccountIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": MessageDeleted, "data": r})
}

// LatestJSON writes the newest reading of accountID. An account without
// readings yields data null with status 200.
func LatestJSON(c echo.Context, svc *Service, accountID uuid.UUID) error {
	r, err := svc.Latest(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	if r == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": MessageNoData, "data": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": MessageLatest, "data": r})
}

// HistoryJSON writes one page of readings of accountID using the page and
// limit query parameters.
func HistoryJSON(c echo.Context, svc *Service, accountID uuid.UUID) error {
	p, err := pagination.StrictFromContext(c, DefaultHistoryLimit)
	if err != nil {
		return err
	}
	items, nav, err := svc.History(c.Request().Context(), accountID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    MessageHistory,
		"data":       items,
		"pagination": nav,
	})
}

// StatsJSON writes the last-24h aggregate of accountID.
func StatsJSON(c echo.Context, svc *Service, accountID uuid.UUID) error {
	st, err := svc.StatsLast24h(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	msg := MessageStats
	if st.TotalReadings == 0 {
		msg = MessageNoStats
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "data": st})
}
