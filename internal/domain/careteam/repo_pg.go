package careteam

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/footcare/footcare/internal/domain/account"
	"github.com/footcare/footcare/internal/platform/db"
)

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) Insert(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO care_assignments (clinician_id, patient_id) VALUES ($1, $2)
		ON CONFLICT (clinician_id, patient_id) DO NOTHING`, clinicianID, patientID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return false, errNotPatient
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *assignmentRepoPG) Delete(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error) {
	var removed uuid.UUID
	err := r.pool.QueryRow(ctx, `
		DELETE FROM care_assignments WHERE clinician_id = $1 AND patient_id = $2
		RETURNING patient_id`, clinicianID, patientID).Scan(&removed)
	if err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *assignmentRepoPG) Exists(ctx context.Context, clinicianID, patientID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM care_assignments WHERE clinician_id = $1 AND patient_id = $2)`,
		clinicianID, patientID).Scan(&ok)
	return ok, err
}

func (r *assignmentRepoPG) ListAssigned(ctx context.Context, clinicianID uuid.UUID) ([]AssignedPatient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+account.SummaryColumns+`, ca.created_at
		FROM care_assignments ca JOIN `+account.SummaryFrom+` ON a.id = ca.patient_id
		WHERE ca.clinician_id = $1
		ORDER BY ca.created_at`, clinicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssignedPatient
	for rows.Next() {
		var p AssignedPatient
		if err := rows.Scan(append(p.ScanTargets(), &p.AssignedAt)...); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *assignmentRepoPG) SearchUnassigned(ctx context.Context, clinicianID uuid.UUID, query string, limit int) ([]account.Summary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+account.SummaryColumns+`
		FROM `+account.SummaryFrom+`
		WHERE a.role = 'patient'
			AND (a.name ILIKE $2 OR a.email ILIKE $2 OR a.phone ILIKE $2
				OR ($4 <> '' AND regexp_replace(a.phone, '\D', '', 'g') LIKE '%' || $4 || '%'))
			AND NOT EXISTS (
				SELECT 1 FROM care_assignments ca
				WHERE ca.clinician_id = $1 AND ca.patient_id = a.id)
		ORDER BY a.name, a.id
		LIMIT $3`, clinicianID, db.ContainsPattern(query), limit, digitsOnly(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Summary
	for rows.Next() {
		var s account.Summary
		if err := rows.Scan(s.ScanTargets()...); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// digitsOnly lets "(555) 010-0123" match a stored "+15550100123".
func digitsOnly(q string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, q)
}
