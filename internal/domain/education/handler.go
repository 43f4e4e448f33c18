package education

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/internal/platform/blobstore"
	"github.com/footcare/footcare/pkg/pagination"
)

// PhotoField is the multipart field carrying a content photo.
const PhotoField = "photo"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the catalog on g. Reads are public.
func (h *Handler) RegisterRoutes(g *echo.Group, authn echo.MiddlewareFunc) {
	g.GET("", h.List)
	g.GET("/category/:category", h.ListByCategory)
	g.GET("/:id", h.Get)

	g.POST("", h.Create, authn)
	g.PUT("/:id", h.Update, authn)
	g.DELETE("/:id", h.Delete, authn)
	g.GET("/stats/overview", h.Stats, authn, auth.RequirePrivileged(StatsForbiddenMessage))
}

func (h *Handler) Create(c echo.Context) error {
	in, photo, err := bindInput(c)
	if err != nil {
		return err
	}
	content, err := h.svc.Create(c.Request().Context(), editorFrom(c), in, photo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Educational content created successfully",
		"content": content,
	})
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Category:    c.QueryParam("category"),
		ContentType: c.QueryParam("contentType"),
		Search:      c.QueryParam("search"),
		Sort:        c.QueryParam("sort"),
		Desc:        !strings.EqualFold(c.QueryParam("order"), "asc"),
	}
	items, page, err := h.svc.List(c.Request().Context(), f, pagination.FromContext(c, pagination.DefaultLimit))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Educational content retrieved successfully",
		"content":    items,
		"pagination": page,
	})
}

func (h *Handler) ListByCategory(c echo.Context) error {
	category := c.Param("category")
	items, err := h.svc.ListByCategory(c.Request().Context(), category)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Educational content in " + category + " category retrieved",
		"category": category,
		"count":    len(items),
		"content":  items,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := contentID(c)
	if err != nil {
		return err
	}
	content, err := h.svc.View(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Educational content retrieved successfully",
		"content": content,
	})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := contentID(c)
	if err != nil {
		return err
	}
	in, photo, err := bindInput(c)
	if err != nil {
		return err
	}
	content, err := h.svc.Update(c.Request().Context(), id, editorFrom(c), in, photo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Educational content updated successfully",
		"content": content,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := contentID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id, editorFrom(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Educational content deleted successfully",
		"contentId": id,
	})
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Content statistics retrieved successfully",
		"stats":   st,
	})
}

func bindInput(c echo.Context) (Input, *multipart.FileHeader, error) {
	var in Input
	if err := c.Bind(&in); err != nil {
		return Input{}, nil, apperr.Validation("Invalid request body")
	}
	photo, err := blobstore.OptionalUpload(c, PhotoField)
	if err != nil {
		return Input{}, nil, err
	}
	return in, photo, nil
}

func editorFrom(c echo.Context) Editor {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil {
		return Editor{}
	}
	return Editor{ID: p.ID, Privileged: p.Privileged}
}

// contentID parses the :id parameter. Malformed ids cannot exist, so they
// are reported as missing.
func contentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}
