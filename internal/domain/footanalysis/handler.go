package footanalysis

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/internal/platform/blobstore"
)

// ImageField is the multipart field carrying the foot photo.
const ImageField = "file"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group, authn echo.MiddlewareFunc) {
	g.Use(authn, auth.RequireRole(auth.RolePatient))
	g.POST("", h.Submit)
	g.GET("", h.List)
}

func (h *Handler) Submit(c echo.Context) error {
	image, err := blobstore.RequiredUpload(c, ImageField, "Image file is required")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Submit(ctx, auth.AccountIDFromContext(ctx), image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": r})
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListForAccount(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}
