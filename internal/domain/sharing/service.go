// Package sharing keeps the ledger of patients who let other patients read
// their sensor data.
package sharing

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

// Accounts resolves the accounts on either side of a grant.
// *account.Service implements it.
type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ImageURL(name string) string
}

// Notifier delivers the e-mail sent to a new grantee.
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
		logger:   logger.With().Str("component", "sharing").Logger(),
	}
}

// Grant lets granteeID read grantorID's data and notifies the grantee.
func (s *Service) Grant(ctx context.Context, grantorID, granteeID uuid.UUID) (*GranteeView, error) {
	if grantorID == granteeID {
		return nil, ErrSelfShare
	}
	grantee, err := s.patient(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	grantor, err := s.patient(ctx, grantorID)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}

	inserted, err := s.repo.Insert(ctx, grantorID, granteeID)
	if err != nil {
		if errors.Is(err, errNotPatient) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadySharing
	}

	s.logger.Info().Str("grantor_id", grantorID.String()).Str("grantee_id", granteeID.String()).Msg("data sharing granted")
	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.TemplateDataShared, grantee.Email, map[string]string{
			"recipient_name": grantee.Name,
			"owner_name":     grantor.Name,
			"owner_email":    grantor.Email,
		})
	}
	return s.granteeView(ctx, grantee)
}

// RevokeAsGrantor withdraws grantorID's grant to granteeID. Revoking a grant
// that does not exist is not an error.
func (s *Service) RevokeAsGrantor(ctx context.Context, grantorID, granteeID uuid.UUID) (*GranteeView, error) {
	grantee, err := s.existing(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Delete(ctx, grantorID, granteeID)
	if err != nil {
		return nil, err
	}
	if removed {
		s.logger.Info().Str("grantor_id", grantorID.String()).Str("grantee_id", granteeID.String()).Msg("data sharing revoked")
	}
	return s.granteeView(ctx, grantee)
}

// RevokeAsGrantee removes grantorID from the accounts granteeID can read and
// returns granteeID's own view.
func (s *Service) RevokeAsGrantee(ctx context.Context, granteeID, grantorID uuid.UUID) (*GranteeView, error) {
	if _, err := s.existing(ctx, grantorID); err != nil {
		return nil, err
	}
	self, err := s.accounts.Get(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Delete(ctx, grantorID, granteeID)
	if err != nil {
		return nil, err
	}
	if removed {
		s.logger.Info().Str("grantor_id", grantorID.String()).Str("grantee_id", granteeID.String()).Msg("shared data dismissed")
	}
	return s.granteeView(ctx, self)
}

// ListGrantees returns the accounts that can read accountID's data.
func (s *Service) ListGrantees(ctx context.Context, accountID uuid.UUID) ([]Party, error) {
	parties, err := s.repo.ListGrantees(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.resolveParties(parties), nil
}

// ListGrantors returns the accounts whose data accountID can read.
func (s *Service) ListGrantors(ctx context.Context, accountID uuid.UUID) ([]Party, error) {
	parties, err := s.repo.ListGrantors(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.resolveParties(parties), nil
}

// Search finds patients by name or email to share with.
func (s *Service) Search(ctx context.Context, accountID uuid.UUID, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	found, err := s.repo.SearchPatients(ctx, accountID, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, len(found))
	for i, c := range found {
		c.Summary = c.Summary.WithImageURL(s.accounts.ImageURL)
		out[i] = c
	}
	return out, nil
}

// CanRead reports whether viewerID may read ownerID's data.
func (s *Service) CanRead(ctx context.Context, viewerID, ownerID uuid.UUID) (bool, error) {
	if viewerID == ownerID {
		return true, nil
	}
	return s.repo.Exists(ctx, ownerID, viewerID)
}

func (s *Service) granteeView(ctx context.Context, grantee *account.Account) (*GranteeView, error) {
	grantors, err := s.ListGrantors(ctx, grantee.ID)
	if err != nil {
		return nil, err
	}
	return &GranteeView{
		ID:           grantee.ID,
		Name:         grantee.Name,
		Email:        grantee.Email,
		SharedWithMe: grantors,
	}, nil
}

func (s *Service) resolveParties(parties []Party) []Party {
	out := make([]Party, len(parties))
	for i, p := range parties {
		p.Summary = p.Summary.WithImageURL(s.accounts.ImageURL)
		out[i] = p
	}
	return out
}

// existing returns the account with id, mapping a miss to ErrTargetNotFound.
func (s *Service) existing(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	return a, nil
}

// patient is like existing but also rejects clinician accounts.
func (s *Service) patient(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.existing(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role != account.RolePatient {
		return nil, ErrTargetNotFound
	}
	return a, nil
}
