package footanalysis

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &recordRepoPG{pool: pool}
}

const recordCols = `id, account_id, image_ref, result, confidence, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	if err := row.Scan(&r.ID, &r.AccountID, &r.ImageRef, &r.Result, &r.Confidence, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *recordRepoPG) Create(ctx context.Context, r *Record) error {
	return p.pool.QueryRow(ctx, `
		INSERT INTO foot_analyses (account_id, image_ref, result, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		r.AccountID, r.ImageRef, r.Result, r.Confidence,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (p *recordRepoPG) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+recordCols+` FROM foot_analyses
		WHERE account_id = $1
		ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
