package footanalysis

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	// ListByAccount returns the account's records newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Record, error)
}
