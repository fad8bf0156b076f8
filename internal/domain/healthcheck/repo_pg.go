package healthcheck

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const hcCols = `id, registration_id, blood_pressure, hemoglobin, weight, pulse, temperature,
	is_eligible, deferral_reason, resolved_by, resolved_at, created_at, updated_at`

func scanHealthCheck(row pgx.Row) (*HealthCheck, error) {
	var hc HealthCheck
	err := row.Scan(&hc.ID, &hc.RegistrationID, &hc.BloodPressure, &hc.Hemoglobin,
		&hc.Weight, &hc.Pulse, &hc.Temperature,
		&hc.IsEligible, &hc.DeferralReason, &hc.ResolvedBy, &hc.ResolvedAt,
		&hc.CreatedAt, &hc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("health check not found")
	}
	return &hc, err
}

func (r *repoPG) Create(ctx context.Context, hc *HealthCheck) error {
	if hc.ID == uuid.Nil {
		hc.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_check (id, registration_id)
		VALUES ($1,$2)
		RETURNING created_at, updated_at`,
		hc.ID, hc.RegistrationID).
		Scan(&hc.CreatedAt, &hc.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*HealthCheck, error) {
	return scanHealthCheck(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hcCols+` FROM health_check WHERE id = $1`, id))
}

func (r *repoPG) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*HealthCheck, error) {
	return scanHealthCheck(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hcCols+` FROM health_check WHERE registration_id = $1
		 ORDER BY created_at DESC LIMIT 1`, registrationID))
}

func (r *repoPG) Update(ctx context.Context, hc *HealthCheck) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_check
		SET blood_pressure=$2, hemoglobin=$3, weight=$4, pulse=$5, temperature=$6,
			is_eligible=$7, deferral_reason=$8, resolved_by=$9, resolved_at=$10, updated_at=NOW()
		WHERE id = $1`,
		hc.ID, hc.BloodPressure, hc.Hemoglobin, hc.Weight, hc.Pulse, hc.Temperature,
		hc.IsEligible, hc.DeferralReason, hc.ResolvedBy, hc.ResolvedAt)
	return err
}
