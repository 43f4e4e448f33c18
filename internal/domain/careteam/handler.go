package careteam

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/domain/footanalysis"
	"github.com/footcare/footcare/internal/domain/sensor"
	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	readings *sensor.Service
	analyses *footanalysis.Service
}

func NewHandler(svc *Service, readings *sensor.Service, analyses *footanalysis.Service) *Handler {
	return &Handler{svc: svc, readings: readings, analyses: analyses}
}

// RegisterRoutes mounts the patient-list routes under /clinicians/patients.
func (h *Handler) RegisterRoutes(clinicians *echo.Group, authn echo.MiddlewareFunc) {
	g := clinicians.Group("/patients", authn, auth.RequireRole(auth.RoleClinician))
	g.GET("/search", h.Search)
	g.GET("", h.ListAssigned)
	g.POST("/assign", h.Assign)
	g.DELETE("/:patientId", h.Remove)

	g.GET("/:patientId", h.PatientProfile)
	g.GET("/:patientId/sensor-data/latest", h.PatientLatest)
	g.GET("/:patientId/sensor-data/history", h.PatientHistory)
	g.GET("/:patientId/sensor-data/stats", h.PatientStats)
	g.GET("/:patientId/foot-analyses", h.PatientAnalyses)
}

type assignRequest struct {
	PatientID string `json:"patientId" form:"patientId"`
}

func (h *Handler) Assign(c echo.Context) error {
	var in assignRequest
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	raw := strings.TrimSpace(in.PatientID)
	if raw == "" {
		return ErrPatientRequired
	}
	patientID, err := uuid.Parse(raw)
	if err != nil {
		return ErrPatientNotFound
	}

	ctx := c.Request().Context()
	roster, err := h.svc.Assign(ctx, auth.AccountIDFromContext(ctx), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Patient assigned successfully",
		"clinician": roster,
	})
}

func (h *Handler) Remove(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return ErrNotAssigned
	}
	ctx := c.Request().Context()
	roster, err := h.svc.Remove(ctx, auth.AccountIDFromContext(ctx), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Patient removed successfully",
		"clinician": roster,
	})
}

func (h *Handler) ListAssigned(c echo.Context) error {
	ctx := c.Request().Context()
	patients, err := h.svc.ListAssigned(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Assigned patients retrieved successfully",
		"count":    len(patients),
		"patients": patients,
	})
}

func (h *Handler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	patients, err := h.svc.Search(ctx, auth.AccountIDFromContext(ctx), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Patients found",
		"count":    len(patients),
		"patients": patients,
	})
}

func (h *Handler) PatientProfile(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.PatientProfile(ctx, auth.AccountIDFromContext(ctx), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Patient profile retrieved successfully",
		"patient": p,
	})
}

func (h *Handler) PatientLatest(c echo.Context) error {
	patientID, err := h.authorized(c)
	if err != nil {
		return err
	}
	return sensor.LatestJSON(c, h.readings, patientID)
}

func (h *Handler) PatientHistory(c echo.Context) error {
	patientID, err := h.authorized(c)
	if err != nil {
		return err
	}
	return sensor.HistoryJSON(c, h.readings, patientID)
}

func (h *Handler) PatientStats(c echo.Context) error {
	patientID, err := h.authorized(c)
	if err != nil {
		return err
	}
	return sensor.StatsJSON(c, h.readings, patientID)
}

func (h *Handler) PatientAnalyses(c echo.Context) error {
	patientID, err := h.authorized(c)
	if err != nil {
		return err
	}
	items, err := h.analyses.ListForAccount(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}

// authorized parses :patientId and checks that it is on the caller's list.
func (h *Handler) authorized(c echo.Context) (uuid.UUID, error) {
	patientID, err := patientParam(c)
	if err != nil {
		return uuid.Nil, err
	}
	ctx := c.Request().Context()
	if err := h.svc.Authorize(ctx, auth.AccountIDFromContext(ctx), patientID); err != nil {
		return uuid.Nil, err
	}
	return patientID, nil
}

// patientParam maps a malformed id to ErrNoPatientAccess: it can never be on
// anyone's list.
func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return uuid.Nil, ErrNoPatientAccess
	}
	return id, nil
}
