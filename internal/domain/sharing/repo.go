package sharing

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores directed grants: grantee may read grantor's data.
type Repository interface {
	// Insert reports false when the grant already exists.
	Insert(ctx context.Context, grantorID, granteeID uuid.UUID) (bool, error)
	// Delete reports whether a grant was removed.
	Delete(ctx context.Context, grantorID, granteeID uuid.UUID) (bool, error)
	Exists(ctx context.Context, grantorID, granteeID uuid.UUID) (bool, error)
	ListGrantees(ctx context.Context, grantorID uuid.UUID) ([]Party, error)
	ListGrantors(ctx context.Context, granteeID uuid.UUID) ([]Party, error)
	// SearchPatients matches patients other than searcherID by name or email.
	SearchPatients(ctx context.Context, searcherID uuid.UUID, query string, limit int) ([]Candidate, error)
}
