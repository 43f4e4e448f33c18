package sensor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Reading) error
	// Latest returns nil and no error when the account has no readings.
	Latest(ctx context.Context, accountID uuid.UUID) (*Reading, error)
	List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Reading, int, error)
	StatsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (*Stats, error)
	// Delete removes the reading only when it belongs to accountID.
	Delete(ctx context.Context, id, accountID uuid.UUID) (*Reading, error)
}
