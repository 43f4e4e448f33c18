package sharing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/footcare/footcare/internal/domain/account"
	"github.com/footcare/footcare/internal/platform/db"
)

type grantRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &grantRepoPG{pool: pool}
}

func (r *grantRepoPG) Insert(ctx context.Context, grantorID, granteeID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO sharing_grants (grantor_id, grantee_id) VALUES ($1, $2)
		ON CONFLICT (grantor_id, grantee_id) DO NOTHING`, grantorID, granteeID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return false, errNotPatient
		}
		if name, ok := db.ConstraintViolation(err, db.CodeCheckViolation); ok && name == "sharing_grants_no_self" {
			return false, ErrSelfShare
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *grantRepoPG) Delete(ctx context.Context, grantorID, granteeID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM sharing_grants WHERE grantor_id = $1 AND grantee_id = $2`, grantorID, granteeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *grantRepoPG) Exists(ctx context.Context, grantorID, granteeID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sharing_grants WHERE grantor_id = $1 AND grantee_id = $2)`,
		grantorID, granteeID).Scan(&ok)
	return ok, err
}

func (r *grantRepoPG) ListGrantees(ctx context.Context, grantorID uuid.UUID) ([]Party, error) {
	return r.listParties(ctx, `
		SELECT `+account.SummaryColumns+`, g.created_at
		FROM sharing_grants g JOIN `+account.SummaryFrom+` ON a.id = g.grantee_id
		WHERE g.grantor_id = $1
		ORDER BY g.created_at`, grantorID)
}

func (r *grantRepoPG) ListGrantors(ctx context.Context, granteeID uuid.UUID) ([]Party, error) {
	return r.listParties(ctx, `
		SELECT `+account.SummaryColumns+`, g.created_at
		FROM sharing_grants g JOIN `+account.SummaryFrom+` ON a.id = g.grantor_id
		WHERE g.grantee_id = $1
		ORDER BY g.created_at`, granteeID)
}

func (r *grantRepoPG) listParties(ctx context.Context, query string, id uuid.UUID) ([]Party, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(append(p.ScanTargets(), &p.SharedSince)...); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *grantRepoPG) SearchPatients(ctx context.Context, searcherID uuid.UUID, query string, limit int) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+account.SummaryColumns+`,
			EXISTS (SELECT 1 FROM sharing_grants g WHERE g.grantor_id = $1 AND g.grantee_id = a.id)
		FROM `+account.SummaryFrom+`
		WHERE a.role = 'patient' AND a.id <> $1
			AND (a.name ILIKE $2 OR a.email ILIKE $2)
		ORDER BY a.name, a.id
		LIMIT $3`, searcherID, db.ContainsPattern(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(append(c.ScanTargets(), &c.CanSeeMyData)...); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
