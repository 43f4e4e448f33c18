// Package careteam maintains each clinician's list of patients and guards
// clinician access to patient data.
package careteam

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/footcare/footcare/internal/domain/account"
	"github.com/footcare/footcare/internal/platform/notification"
)

// Accounts resolves clinicians and patients. *account.Service implements it.
type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ImageURL(name string) string
}

type Notifier interface {
	Notify(ctx context.Context, templateID, recipient string, data map[string]string)
}

type Service struct {
	repo     Repository
	accounts Accounts
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, accounts Accounts, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		notifier: notifier,
		logger:   logger.With().Str("component", "careteam").Logger(),
	}
}

// Assign adds patientID to clinicianID's list and e-mails the patient.
func (s *Service) Assign(ctx context.Context, clinicianID, patientID uuid.UUID) (*Roster, error) {
	patient, err := s.patient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	clinician, err := s.clinician(ctx, clinicianID)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.Insert(ctx, clinicianID, patientID)
	if err != nil {
		if errors.Is(err, errNotPatient) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyAssigned
	}

	s.logger.Info().Str("clinician_id", clinicianID.String()).Str("patient_id", patientID.String()).Msg("patient assigned")
	if s.notifier != nil {
		data := map[string]string{
			"recipient_name": patient.Name,
			"clinician_name": clinician.Name,
		}
		if clinician.Clinician != nil {
			data["institution"] = clinician.Clinician.Institution
		}
		s.notifier.Notify(ctx, notification.TemplatePatientAssigned, patient.Email, data)
	}
	return s.roster(ctx, clinician)
}

// Remove takes patientID off clinicianID's list.
func (s *Service) Remove(ctx context.Context, clinicianID, patientID uuid.UUID) (*Roster, error) {
	clinician, err := s.clinician(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Delete(ctx, clinicianID, patientID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotAssigned
	}
	s.logger.Info().Str("clinician_id", clinicianID.String()).Str("patient_id", patientID.String()).Msg("patient removed")
	return s.roster(ctx, clinician)
}

// ListAssigned returns clinicianID's patients in assignment order.
func (s *Service) ListAssigned(ctx context.Context, clinicianID uuid.UUID) ([]AssignedPatient, error) {
	patients, err := s.repo.ListAssigned(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	out := make([]AssignedPatient, len(patients))
	for i, p := range patients {
		p.Summary = p.Summary.WithImageURL(s.accounts.ImageURL)
		out[i] = p
	}
	return out, nil
}

// Search finds patients not yet on clinicianID's list.
func (s *Service) Search(ctx context.Context, clinicianID uuid.UUID, query string) ([]account.Summary, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	found, err := s.repo.SearchUnassigned(ctx, clinicianID, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]account.Summary, len(found))
	for i, p := range found {
		out[i] = p.WithImageURL(s.accounts.ImageURL)
	}
	return out, nil
}

// CheckAccess reports whether patientID is on clinicianID's list.
func (s *Service) CheckAccess(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, clinicianID, patientID)
}

// Authorize fails with ErrNoPatientAccess unless patientID is on
// clinicianID's list.
func (s *Service) Authorize(ctx context.Context, clinicianID, patientID uuid.UUID) error {
	ok, err := s.CheckAccess(ctx, clinicianID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPatientAccess
	}
	return nil
}

// PatientProfile returns the profile of an assigned patient.
func (s *Service) PatientProfile(ctx context.Context, clinicianID, patientID uuid.UUID) (*account.Summary, error) {
	if err := s.Authorize(ctx, clinicianID, patientID); err != nil {
		return nil, err
	}
	p, err := s.patient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	summary := p.Summary().WithImageURL(s.accounts.ImageURL)
	return &summary, nil
}

func (s *Service) roster(ctx context.Context, clinician *account.Account) (*Roster, error) {
	patients, err := s.ListAssigned(ctx, clinician.ID)
	if err != nil {
		return nil, err
	}
	return &Roster{
		ID:               clinician.ID,
		Name:             clinician.Name,
		AssignedPatients: patients,
		PatientCount:     len(patients),
	}, nil
}

func (s *Service) patient(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if a.Role != account.RolePatient {
		return nil, ErrPatientNotFound
	}
	return a, nil
}

func (s *Service) clinician(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, account.ErrClinicianNotFound
		}
		return nil, err
	}
	if a.Role != account.RoleClinician {
		return nil, account.ErrClinicianNotFound
	}
	return a, nil
}
