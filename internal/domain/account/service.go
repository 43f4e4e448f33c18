package account

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/internal/platform/blobstore"
	"github.com/footcare/footcare/internal/platform/middleware"
)

type Options struct {
	PhoneRegion    string
	UploadMaxBytes int64
}

type Service struct {
	repo   Repository
	hasher *auth.PasswordHasher
	tokens *auth.TokenService
	files  blobstore.Store
	opts   Options
	logger zerolog.Logger
}

func NewService(repo Repository, hasher *auth.PasswordHasher, tokens *auth.TokenService, files blobstore.Store, opts Options, logger zerolog.Logger) *Service {
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "US"
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		files:  files,
		opts:   opts,
		logger: logger.With().Str("component", "account").Logger(),
	}
}

// ImageURL resolves a stored profile image name to its public URL.
func (s *Service) ImageURL(name string) string {
	return s.files.URL(name)
}

func (s *Service) RegisterPatient(ctx context.Context, in PatientSignup, image *multipart.FileHeader) (*Account, string, error) {
	in.Name = middleware.SanitizeString(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, "", ErrAllFieldsRequired
	}
	if in.Password != in.ConfirmPassword {
		return nil, "", ErrPasswordMismatch
	}

	phone, err := normalizePhone(in.Phone, s.opts.PhoneRegion)
	if err != nil {
		return nil, "", err
	}
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, "", err
	}

	a := &Account{
		Role:    RolePatient,
		Email:   in.Email,
		Name:    in.Name,
		Phone:   phone,
		Patient: &PatientProfile{DateOfBirth: dob},
	}
	if err := s.create(ctx, a, in.Password, image); err != nil {
		if errors.Is(err, errEmailExists) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	return s.withToken(a)
}

func (s *Service) RegisterClinician(ctx context.Context, in ClinicianSignup, image *multipart.FileHeader) (*Account, string, error) {
	in.Name = middleware.SanitizeString(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	in.Institution = middleware.SanitizeString(in.Institution)
	in.Specialization = strings.TrimSpace(in.Specialization)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" ||
		strings.TrimSpace(in.Phone) == "" || in.LicenseNumber == "" || in.Specialization == "" || in.Institution == "" {
		return nil, "", ErrAllFieldsRequired
	}
	if in.Password != in.ConfirmPassword {
		return nil, "", ErrPasswordMismatch
	}
	if !Specializations[in.Specialization] {
		return nil, "", ErrInvalidSpecialization
	}

	phone, err := normalizePhone(in.Phone, s.opts.PhoneRegion)
	if err != nil {
		return nil, "", err
	}

	a := &Account{
		Role:  RoleClinician,
		Email: in.Email,
		Name:  in.Name,
		Phone: phone,
		Clinician: &ClinicianProfile{
			LicenseNumber:  in.LicenseNumber,
			Specialization: in.Specialization,
			Institution:    in.Institution,
		},
	}
	if err := s.create(ctx, a, in.Password, image); err != nil {
		if errors.Is(err, errEmailExists) || errors.Is(err, errLicenseExists) {
			return nil, "", ErrClinicianTaken
		}
		return nil, "", err
	}
	return s.withToken(a)
}

func (s *Service) create(ctx context.Context, a *Account, password string, image *multipart.FileHeader) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return apperr.Validation("Password is too long")
		}
		return apperr.Internal("hash password", err)
	}
	a.PasswordHash = hash

	if image != nil {
		name, err := blobstore.SaveUpload(ctx, s.files, image, blobstore.ImageTypes, s.opts.UploadMaxBytes)
		if err != nil {
			return err
		}
		a.ProfileImage = name
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.discard(ctx, a.ProfileImage)
		return err
	}

	s.logger.Info().Str("account_id", a.ID.String()).Str("role", a.Role).Msg("account registered")
	return nil
}

func (s *Service) withToken(a *Account) (*Account, string, error) {
	token, err := s.tokens.Issue(a.ID, a.Email, a.Role)
	if err != nil {
		return nil, "", apperr.Internal("issue token", err)
	}
	return a, token, nil
}

// Authenticate checks email and password for the given role and issues a
// fresh token. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, role string, creds Credentials) (*Account, string, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, "", ErrCredentialsRequired
	}

	a, err := s.repo.GetByEmail(ctx, role, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !s.hasher.Compare(a.PasswordHash, creds.Password) {
		return nil, "", ErrInvalidCredentials
	}
	return s.withToken(a)
}

// Get returns the account with id regardless of role.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// Profile returns the account with id when it has the given role.
func (s *Service) Profile(ctx context.Context, id uuid.UUID, role string) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil || a.Role != role {
		if err == nil || errors.Is(err, ErrNotFound) {
			return nil, notFound(role)
		}
		return nil, err
	}
	return a, nil
}

// UpdateProfile applies the client-writable fields and an optional new
// profile image. The previous image is deleted once the update is stored.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, role string, in ProfileUpdate, image *multipart.FileHeader) (*Account, error) {
	a, err := s.Profile(ctx, id, role)
	if err != nil {
		return nil, err
	}

	if name := middleware.SanitizeString(in.Name); name != "" {
		a.Name = name
	}
	if strings.TrimSpace(in.Phone) != "" {
		phone, err := normalizePhone(in.Phone, s.opts.PhoneRegion)
		if err != nil {
			return nil, err
		}
		a.Phone = phone
	}
	if role == RolePatient && strings.TrimSpace(in.DateOfBirth) != "" {
		dob, err := parseDate(in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		a.Patient = &PatientProfile{DateOfBirth: dob}
	}
	if role == RoleClinician && strings.TrimSpace(in.Institution) != "" {
		if a.Clinician == nil {
			a.Clinician = &ClinicianProfile{}
		}
		a.Clinician.Institution = middleware.SanitizeString(in.Institution)
	}

	if in.empty() && image == nil {
		return a, nil
	}

	previous := a.ProfileImage
	if image != nil {
		name, err := blobstore.SaveUpload(ctx, s.files, image, blobstore.ImageTypes, s.opts.UploadMaxBytes)
		if err != nil {
			return nil, err
		}
		a.ProfileImage = name
	}

	if err := s.repo.Update(ctx, a); err != nil {
		if image != nil {
			s.discard(ctx, a.ProfileImage)
		}
		if errors.Is(err, ErrNotFound) {
			return nil, notFound(role)
		}
		return nil, err
	}
	if image != nil {
		s.discard(ctx, previous)
	}
	return a, nil
}

// SetPrivileged grants or withdraws content-editing rights.
func (s *Service) SetPrivileged(ctx context.Context, role, email string, privileged bool) error {
	if role != RolePatient && role != RoleClinician {
		return apperr.Validation("role must be patient or clinician")
	}
	if err := s.repo.SetPrivileged(ctx, role, strings.TrimSpace(email), privileged); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(role)
		}
		return err
	}
	s.logger.Info().Str("role", role).Str("email", email).Bool("privileged", privileged).Msg("privilege changed")
	return nil
}

// ResolvePrincipal implements auth.Resolver.
func (s *Service) ResolvePrincipal(ctx context.Context, id uuid.UUID, role string) (*auth.Principal, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrSubjectNotFound
		}
		return nil, err
	}
	if a.Role != role {
		return nil, auth.ErrSubjectNotFound
	}
	return &auth.Principal{ID: a.ID, Email: a.Email, Role: a.Role, Privileged: a.IsPrivileged}, nil
}

func (s *Service) discard(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.files.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("failed to delete profile image")
	}
}

func notFound(role string) error {
	if role == RoleClinician {
		return ErrClinicianNotFound
	}
	return ErrNotFound
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, ErrInvalidDateOfBirth
}
