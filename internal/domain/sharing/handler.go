package sharing

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/domain/sensor"
	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	readings *sensor.Service
}

// NewHandler builds the sharing handler. readings serves the telemetry of
// accounts that share with the caller.
func NewHandler(svc *Service, readings *sensor.Service) *Handler {
	return &Handler{svc: svc, readings: readings}
}

// RegisterRoutes mounts the sharing routes on the /users group.
func (h *Handler) RegisterRoutes(users *echo.Group, authn echo.MiddlewareFunc) {
	g := users.Group("", authn, auth.RequireRole(auth.RolePatient))
	g.POST("/share", h.Share)
	g.DELETE("/unshare/:targetUserId", h.Unshare)
	g.DELETE("/shared/remove/:targetUserId", h.RemoveFromShared)
	g.GET("/shared/users-i-can-see", h.ListGrantees)
	g.GET("/shared/users-sharing-with-me", h.ListGrantors)
	g.GET("/shared/search", h.Search)
	g.GET("/shared/:ownerId/sensor-data/latest", h.OwnerLatest)
	g.GET("/shared/:ownerId/sensor-data/stats", h.OwnerStats)
}

type shareRequest struct {
	TargetUserID string `json:"targetUserId" form:"targetUserId"`
}

func (h *Handler) Share(c echo.Context) error {
	var in shareRequest
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if strings.TrimSpace(in.TargetUserID) == "" {
		return ErrTargetRequired
	}
	target, err := uuid.Parse(strings.TrimSpace(in.TargetUserID))
	if err != nil {
		return ErrTargetNotFound
	}

	ctx := c.Request().Context()
	view, err := h.svc.Grant(ctx, auth.AccountIDFromContext(ctx), target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Data sharing enabled successfully",
		"targetUser": view,
	})
}

func (h *Handler) Unshare(c echo.Context) error {
	target, err := targetParam(c, "targetUserId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	view, err := h.svc.RevokeAsGrantor(ctx, auth.AccountIDFromContext(ctx), target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Data sharing removed successfully",
		"targetUser": view,
	})
}

func (h *Handler) RemoveFromShared(c echo.Context) error {
	target, err := targetParam(c, "targetUserId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	view, err := h.svc.RevokeAsGrantee(ctx, auth.AccountIDFromContext(ctx), target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User removed from your shared list successfully",
		"user":    view,
	})
}

func (h *Handler) ListGrantees(c echo.Context) error {
	ctx := c.Request().Context()
	users, err := h.svc.ListGrantees(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Users who can see your data",
		"count":   len(users),
		"users":   users,
	})
}

func (h *Handler) ListGrantors(c echo.Context) error {
	ctx := c.Request().Context()
	users, err := h.svc.ListGrantors(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Users sharing their data with you",
		"count":   len(users),
		"users":   users,
	})
}

func (h *Handler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	users, err := h.svc.Search(ctx, auth.AccountIDFromContext(ctx), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Users found",
		"count":   len(users),
		"users":   users,
	})
}

func (h *Handler) OwnerLatest(c echo.Context) error {
	owner, err := h.readableOwner(c)
	if err != nil {
		return err
	}
	return sensor.LatestJSON(c, h.readings, owner)
}

func (h *Handler) OwnerStats(c echo.Context) error {
	owner, err := h.readableOwner(c)
	if err != nil {
		return err
	}
	return sensor.StatsJSON(c, h.readings, owner)
}

// readableOwner parses :ownerId and checks that the caller may read its data.
func (h *Handler) readableOwner(c echo.Context) (uuid.UUID, error) {
	owner, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		return uuid.Nil, ErrNoAccess
	}
	ctx := c.Request().Context()
	ok, err := h.svc.CanRead(ctx, auth.AccountIDFromContext(ctx), owner)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, ErrNoAccess
	}
	return owner, nil
}

func targetParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, ErrTargetNotFound
	}
	return id, nil
}
