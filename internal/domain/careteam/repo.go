package careteam

import (
	"context"

	"github.com/google/uuid"

	"github.com/footcare/footcare/internal/domain/account"
)

type Repository interface {
	// Insert reports false when the patient is already assigned.
	Insert(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error)
	// Delete reports whether an assignment was removed.
	Delete(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error)
	Exists(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error)
	ListAssigned(ctx context.Context, clinicianID uuid.UUID) ([]AssignedPatient, error)
	// SearchUnassigned matches patients not on clinicianID's list by name,
	// email or phone.
	SearchUnassigned(ctx context.Context, clinicianID uuid.UUID, query string, limit int) ([]account.Summary, error)
}
