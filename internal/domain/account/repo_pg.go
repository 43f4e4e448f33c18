package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/footcare/footcare/internal/platform/db"
)

type accountRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &accountRepoPG{pool: pool}
}

const accountCols = `a.id, a.role, a.email, a.password_hash, a.name, a.phone,
	a.profile_image, a.is_privileged, a.created_at, a.updated_at,
	pp.date_of_birth, cp.license_number, cp.specialization, cp.institution`

const accountFrom = ` FROM accounts a
	LEFT JOIN patient_profiles pp ON pp.account_id = a.id
	LEFT JOIN clinician_profiles cp ON cp.account_id = a.id`

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		a                                  Account
		dob                                *time.Time
		license, specialization, institute *string
	)
	err := row.Scan(&a.ID, &a.Role, &a.Email, &a.PasswordHash, &a.Name, &a.Phone,
		&a.ProfileImage, &a.IsPrivileged, &a.CreatedAt, &a.UpdatedAt,
		&dob, &license, &specialization, &institute)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch a.Role {
	case RolePatient:
		a.Patient = &PatientProfile{DateOfBirth: dob}
	case RoleClinician:
		a.Clinician = &ClinicianProfile{
			LicenseNumber:  deref(license),
			Specialization: deref(specialization),
			Institution:    deref(institute),
		}
	}
	return &a, nil
}

func (r *accountRepoPG) Create(ctx context.Context, a *Account) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO accounts (role, email, password_hash, name, phone, profile_image)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, is_privileged, created_at, updated_at`,
			a.Role, a.Email, a.PasswordHash, a.Name, a.Phone, a.ProfileImage,
		).Scan(&a.ID, &a.IsPrivileged, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return translateWriteErr(err)
		}

		switch a.Role {
		case RolePatient:
			var dob interface{}
			if a.Patient != nil && a.Patient.DateOfBirth != nil {
				dob = *a.Patient.DateOfBirth
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO patient_profiles (account_id, date_of_birth) VALUES ($1, $2)`, a.ID, dob)
		case RoleClinician:
			if a.Clinician == nil {
				return fmt.Errorf("clinician payload missing")
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO clinician_profiles (account_id, license_number, specialization, institution)
				VALUES ($1, $2, $3, $4)`,
				a.ID, a.Clinician.LicenseNumber, a.Clinician.Specialization, a.Clinician.Institution)
		default:
			return fmt.Errorf("unknown role %q", a.Role)
		}
		return translateWriteErr(err)
	})
}

func (r *accountRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+accountFrom+` WHERE a.id = $1`, id))
}

func (r *accountRepoPG) GetByEmail(ctx context.Context, role, email string) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+accountFrom+` WHERE a.role = $1 AND a.email = $2`, role, email))
}

func (r *accountRepoPG) Update(ctx context.Context, a *Account) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE accounts SET name = $2, phone = $3, profile_image = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			a.ID, a.Name, a.Phone, a.ProfileImage,
		).Scan(&a.UpdatedAt)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return err
		}

		switch {
		case a.Patient != nil:
			var dob interface{}
			if a.Patient.DateOfBirth != nil {
				dob = *a.Patient.DateOfBirth
			}
			_, err = tx.Exec(ctx, `UPDATE patient_profiles SET date_of_birth = $2 WHERE account_id = $1`, a.ID, dob)
		case a.Clinician != nil:
			_, err = tx.Exec(ctx, `UPDATE clinician_profiles SET institution = $2 WHERE account_id = $1`,
				a.ID, a.Clinician.Institution)
		}
		return err
	})
}

func (r *accountRepoPG) SetPrivileged(ctx context.Context, role, email string, privileged bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET is_privileged = $3, updated_at = NOW() WHERE role = $1 AND email = $2`,
		role, email, privileged)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if name, ok := db.ConstraintViolation(err, db.CodeUniqueViolation); ok {
		switch name {
		case "accounts_role_email_key":
			return errEmailExists
		case "clinician_profiles_license_number_key":
			return errLicenseExists
		}
	}
	if _, ok := db.ConstraintViolation(err, db.CodeCheckViolation); ok {
		return ErrInvalidSpecialization
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SummaryColumns and SummaryFrom let other repositories select account
// summaries; the accounts alias is a and the patient profile alias is pp.
const (
	SummaryColumns = `a.id, a.name, a.email, a.phone, pp.date_of_birth, a.profile_image, a.created_at`
	SummaryFrom    = `accounts a LEFT JOIN patient_profiles pp ON pp.account_id = a.id`
)

// ScanTargets returns the scan destinations matching SummaryColumns.
func (s *Summary) ScanTargets() []interface{} {
	return []interface{}{&s.ID, &s.Name, &s.Email, &s.Phone, &s.DateOfBirth, &s.ProfileImage, &s.CreatedAt}
}
