package account

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/footcare/footcare/internal/platform/auth"
)

const (
	RolePatient   = auth.RolePatient
	RoleClinician = auth.RoleClinician
)

// Specializations lists the accepted clinician specializations.
var Specializations = map[string]bool{
	"podiatrist":            true,
	"endocrinologist":       true,
	"diabetologist":         true,
	"wound_care_specialist": true,
	"general_practitioner":  true,
	"nurse":                 true,
	"other":                 true,
}

// Account is the common envelope for both roles. Exactly one of Patient and
// Clinician is set, matching Role.
type Account struct {
	ID           uuid.UUID
	Role         string
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	ProfileImage string
	IsPrivileged bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Patient   *PatientProfile
	Clinician *ClinicianProfile
}

type PatientProfile struct {
	DateOfBirth *time.Time
}

type ClinicianProfile struct {
	LicenseNumber  string
	Specialization string
	Institution    string
}

// Summary is the public projection of an account used by the sharing and
// care-team listings.
type Summary struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	ProfileImage string     `json:"ProfileImage"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (a *Account) Summary() Summary {
	s := Summary{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Phone:        a.Phone,
		ProfileImage: a.ProfileImage,
		CreatedAt:    a.CreatedAt,
	}
	if a.Patient != nil {
		s.DateOfBirth = a.Patient.DateOfBirth
	}
	return s
}

// WithImageURL returns s with ProfileImage resolved to a public URL.
func (s Summary) WithImageURL(imageURL func(string) string) Summary {
	s.ProfileImage = resolveImage(s.ProfileImage, imageURL)
	return s
}

// PatientView is the patient profile returned by the /users endpoints.
type PatientView struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	ProfileImage string     `json:"ProfileImage"`
	IsAdmin      bool       `json:"isAdmin"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ClinicianView is the clinician profile returned by the /clinicians endpoints.
type ClinicianView struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	LicenseNumber  string    `json:"licenseNumber"`
	Specialization string    `json:"specialization"`
	Institution    string    `json:"institution"`
	ProfileImage   string    `json:"profileImage"`
	IsAdmin        bool      `json:"isAdmin"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (a *Account) PatientView(imageURL func(string) string) PatientView {
	v := PatientView{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Phone:        a.Phone,
		ProfileImage: resolveImage(a.ProfileImage, imageURL),
		IsAdmin:      a.IsPrivileged,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Patient != nil {
		v.DateOfBirth = a.Patient.DateOfBirth
	}
	return v
}

func (a *Account) ClinicianView(imageURL func(string) string) ClinicianView {
	v := ClinicianView{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Phone:        a.Phone,
		ProfileImage: resolveImage(a.ProfileImage, imageURL),
		IsAdmin:      a.IsPrivileged,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Clinician != nil {
		v.LicenseNumber = a.Clinician.LicenseNumber
		v.Specialization = a.Clinician.Specialization
		v.Institution = a.Clinician.Institution
	}
	return v
}

func resolveImage(name string, imageURL func(string) string) string {
	if name == "" || imageURL == nil {
		return name
	}
	return imageURL(name)
}

// PatientSignup is the /users/signup payload. It binds from JSON or
// multipart forms.
type PatientSignup struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
	Phone           string `json:"phone" form:"phone"`
	DateOfBirth     string `json:"dateOfBirth" form:"dateOfBirth"`
}

// ClinicianSignup is the /clinicians/signup payload. Every field is required.
type ClinicianSignup struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
	Phone           string `json:"phone" form:"phone"`
	LicenseNumber   string `json:"licenseNumber" form:"licenseNumber"`
	Specialization  string `json:"specialization" form:"specialization"`
	Institution     string `json:"institution" form:"institution"`
}

type Credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ProfileUpdate carries the client-writable profile fields. Empty fields are
// left unchanged. DateOfBirth only applies to patients and Institution only
// to clinicians.
type ProfileUpdate struct {
	Name        string `json:"name" form:"name"`
	Phone       string `json:"phone" form:"phone"`
	DateOfBirth string `json:"dateOfBirth" form:"dateOfBirth"`
	Institution string `json:"institution" form:"institution"`
}

func (u ProfileUpdate) empty() bool {
	return strings.TrimSpace(u.Name) == "" && strings.TrimSpace(u.Phone) == "" &&
		strings.TrimSpace(u.DateOfBirth) == "" && strings.TrimSpace(u.Institution) == ""
}
