package sensor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/footcare/footcare/internal/platform/db"
)

type readingRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &readingRepoPG{pool: pool}
}

const readingCols = `id, account_id, device_id, temperature, humidity, recorded_at, created_at`

func scanReading(row pgx.Row) (*Reading, error) {
	var r Reading
	if err := row.Scan(&r.ID, &r.AccountID, &r.DeviceID, &r.Temperature, &r.Humidity, &r.Timestamp, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *readingRepoPG) Create(ctx context.Context, r *Reading) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO sensor_readings (account_id, device_id, temperature, humidity, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		r.AccountID, r.DeviceID, r.Temperature, r.Humidity, r.Timestamp,
	).Scan(&r.ID, &r.CreatedAt)
	switch {
	case err == nil:
		return nil
	case db.IsForeignKeyViolation(err):
		return errAccountMissing
	case db.IsCheckViolation(err):
		return errOutOfRange
	default:
		return err
	}
}

func (p *readingRepoPG) Latest(ctx context.Context, accountID uuid.UUID) (*Reading, error) {
	r, err := scanReading(p.pool.QueryRow(ctx, `
		SELECT `+readingCols+` FROM sensor_readings
		WHERE account_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, accountID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return r, err
}

func (p *readingRepoPG) List(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Reading, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sensor_readings WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT `+readingCols+` FROM sensor_readings
		WHERE account_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (p *readingRepoPG) StatsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (*Stats, error) {
	var s Stats
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(temperature), 0), COALESCE(AVG(humidity), 0),
			COALESCE(MAX(temperature), 0), COALESCE(MIN(temperature), 0),
			COALESCE(MAX(humidity), 0), COALESCE(MIN(humidity), 0),
			COUNT(*)
		FROM sensor_readings
		WHERE account_id = $1 AND recorded_at >= $2`, accountID, since,
	).Scan(&s.AvgTemperature, &s.AvgHumidity, &s.MaxTemperature, &s.MinTemperature,
		&s.MaxHumidity, &s.MinHumidity, &s.TotalReadings)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *readingRepoPG) Delete(ctx context.Context, id, accountID uuid.UUID) (*Reading, error) {
	r, err := scanReading(p.pool.QueryRow(ctx, `
		DELETE FROM sensor_readings
		WHERE id = $1 AND account_id = $2
		RETURNING `+readingCols, id, accountID))
	if db.IsNoRows(err) {
		return nil, ErrReadingNotFound
	}
	return r, err
}
