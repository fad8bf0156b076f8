package donation

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

const donationCols = `id, registration_id, facility_id, blood_group, component, quantity_ml,
	is_divided, collected_at, created_at, updated_at`

func scanDonation(row pgx.Row) (*Donation, error) {
	var d Donation
	err := row.Scan(&d.ID, &d.RegistrationID, &d.FacilityID, &d.BloodGroup, &d.Component,
		&d.QuantityML, &d.IsDivided, &d.CollectedAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("donation not found")
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Donation) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO donation (id, registration_id, facility_id, quantity_ml, is_divided)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		d.ID, d.RegistrationID, d.FacilityID, d.QuantityML, d.IsDivided).
		Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Donation, error) {
	return scanDonation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+donationCols+` FROM donation WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Donation, error) {
	return scanDonation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+donationCols+` FROM donation WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*Donation, error) {
	return scanDonation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+donationCols+` FROM donation WHERE registration_id = $1
		 ORDER BY created_at DESC LIMIT 1`, registrationID))
}

func (r *repoPG) Update(ctx context.Context, d *Donation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation
		SET blood_group=$2, component=$3, quantity_ml=$4, is_divided=$5, collected_at=$6, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.BloodGroup, d.Component, d.QuantityML, d.IsDivided, d.CollectedAt)
	return err
}
