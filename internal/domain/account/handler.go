package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/internal/platform/blobstore"
)

// ProfileImageField is the multipart field carrying a profile photo.
const ProfileImageField = "ProfileImage"

type Handler struct {
	svc     *Service
	revoked auth.RevocationStore
}

func NewHandler(svc *Service, revoked auth.RevocationStore) *Handler {
	return &Handler{svc: svc, revoked: revoked}
}

// RegisterRoutes mounts the patient routes on users and the clinician routes
// on clinicians. authn must be the bearer-token middleware.
func (h *Handler) RegisterRoutes(users, clinicians *echo.Group, authn echo.MiddlewareFunc) {
	users.POST("/signup", h.SignupPatient)
	users.POST("/signin", h.SigninPatient)
	patient := users.Group("", authn, auth.RequireRole(RolePatient))
	patient.GET("/profile", h.GetPatientProfile)
	patient.PUT("/profile", h.UpdatePatientProfile)
	patient.POST("/signout", auth.SignOutHandler(h.revoked))

	clinicians.POST("/signup", h.SignupClinician)
	clinicians.POST("/signin", h.SigninClinician)
	clinician := clinicians.Group("", authn, auth.RequireRole(RoleClinician))
	clinician.GET("/profile", h.GetClinicianProfile)
	clinician.PUT("/profile", h.UpdateClinicianProfile)
	clinician.POST("/signout", auth.SignOutHandler(h.revoked))
}

func (h *Handler) SignupPatient(c echo.Context) error {
	var in PatientSignup
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	image, err := blobstore.OptionalUpload(c, ProfileImageField)
	if err != nil {
		return err
	}
	a, token, err := h.svc.RegisterPatient(c.Request().Context(), in, image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"token":   token,
		"user":    a.PatientView(h.svc.ImageURL),
	})
}

func (h *Handler) SigninPatient(c echo.Context) error {
	var in Credentials
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	a, token, err := h.svc.Authenticate(c.Request().Context(), RolePatient, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"token":   token,
		"user":    a.PatientView(h.svc.ImageURL),
	})
}

func (h *Handler) GetPatientProfile(c echo.Context) error {
	ctx := c.Request().Context()
	a, err := h.svc.Profile(ctx, auth.AccountIDFromContext(ctx), RolePatient)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": a.PatientView(h.svc.ImageURL)})
}

func (h *Handler) UpdatePatientProfile(c echo.Context) error {
	a, err := h.updateProfile(c, RolePatient)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Profile updated successfully",
		"user":    a.PatientView(h.svc.ImageURL),
	})
}

func (h *Handler) SignupClinician(c echo.Context) error {
	var in ClinicianSignup
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	image, err := blobstore.OptionalUpload(c, ProfileImageField)
	if err != nil {
		return err
	}
	a, token, err := h.svc.RegisterClinician(c.Request().Context(), in, image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Clinician created successfully",
		"token":     token,
		"clinician": a.ClinicianView(h.svc.ImageURL),
	})
}

func (h *Handler) SigninClinician(c echo.Context) error {
	var in Credentials
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}
	a, token, err := h.svc.Authenticate(c.Request().Context(), RoleClinician, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Login successful",
		"token":     token,
		"clinician": a.ClinicianView(h.svc.ImageURL),
	})
}

func (h *Handler) GetClinicianProfile(c echo.Context) error {
	ctx := c.Request().Context()
	a, err := h.svc.Profile(ctx, auth.AccountIDFromContext(ctx), RoleClinician)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"clinician": a.ClinicianView(h.svc.ImageURL)})
}

func (h *Handler) UpdateClinicianProfile(c echo.Context) error {
	a, err := h.updateProfile(c, RoleClinician)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Profile updated successfully",
		"clinician": a.ClinicianView(h.svc.ImageURL),
	})
}

func (h *Handler) updateProfile(c echo.Context, role string) (*Account, error) {
	var in ProfileUpdate
	if err := c.Bind(&in); err != nil {
		return nil, apperr.Validation("Invalid request body")
	}
	image, err := blobstore.OptionalUpload(c, ProfileImageField)
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	return h.svc.UpdateProfile(ctx, auth.AccountIDFromContext(ctx), role, in, image)
}
