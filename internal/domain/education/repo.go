package education

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Content) error
	Get(ctx context.Context, id uuid.UUID) (*Content, error)
	// GetAndCountView increments the view counter and returns the updated
	// item in one statement.
	GetAndCountView(ctx context.Context, id uuid.UUID) (*Content, error)
	// Update writes the non-blank fields of p in one statement and returns
	// the saved item together with the photo it held before.
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Content, string, error)
	// Delete returns the removed item so its photo can be cleaned up.
	Delete(ctx context.Context, id uuid.UUID) (*Content, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Content, int, error)
	Stats(ctx context.Context, top int) (*Stats, error)
}
