package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the account and its role payload atomically.
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, role, email string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	SetPrivileged(ctx context.Context, role, email string, privileged bool) error
}
