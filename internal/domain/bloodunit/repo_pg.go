package bloodunit

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const unitCols = `id, donation_id, facility_id, blood_group, component, quantity_ml, remaining_ml,
	status, test_hiv, test_hepatitis_b, test_hepatitis_c, test_syphilis,
	collected_at, expires_at, created_at, updated_at`

func scanUnit(row pgx.Row) (*BloodUnit, error) {
	var u BloodUnit
	err := row.Scan(&u.ID, &u.DonationID, &u.FacilityID, &u.BloodGroup, &u.Component,
		&u.QuantityML, &u.RemainingML, &u.Status,
		&u.TestResults.HIV, &u.TestResults.HepatitisB, &u.TestResults.HepatitisC, &u.TestResults.Syphilis,
		&u.CollectedAt, &u.ExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("blood unit not found")
	}
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *BloodUnit) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_unit (id, donation_id, facility_id, blood_group, component,
			quantity_ml, remaining_ml, status,
			test_hiv, test_hepatitis_b, test_hepatitis_c, test_syphilis,
			collected_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		u.ID, u.DonationID, u.FacilityID, u.BloodGroup, u.Component,
		u.QuantityML, u.RemainingML, u.Status,
		u.TestResults.HIV, u.TestResults.HepatitisB, u.TestResults.HepatitisC, u.TestResults.Syphilis,
		u.CollectedAt, u.ExpiresAt).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*BloodUnit, error) {
	return scanUnit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+unitCols+` FROM blood_unit WHERE id = $1`, id))
}

func (r *repoPG) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]*BloodUnit, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+unitCols+` FROM blood_unit WHERE donation_id = $1 ORDER BY created_at ASC`, donationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*BloodUnit, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.FacilityID != uuid.Nil {
		where += " AND facility_id = " + arg(f.FacilityID)
	}
	if f.BloodGroup != "" {
		where += " AND blood_group = " + arg(f.BloodGroup)
	}
	if f.Component != "" {
		where += " AND component = " + arg(f.Component)
	}
	if f.Status != "" {
		where += " AND status = " + arg(f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_unit `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + unitCols + ` FROM blood_unit ` + where +
		` ORDER BY expires_at ASC, id ASC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) Update(ctx context.Context, u *BloodUnit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_unit
		SET component=$2, quantity_ml=$3, remaining_ml=$4, status=$5,
			test_hiv=$6, test_hepatitis_b=$7, test_hepatitis_c=$8, test_syphilis=$9,
			expires_at=$10, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Component, u.QuantityML, u.RemainingML, u.Status,
		u.TestResults.HIV, u.TestResults.HepatitisB, u.TestResults.HepatitisC, u.TestResults.Syphilis,
		u.ExpiresAt)
	return err
}

func (r *repoPG) LockForAllocation(ctx context.Context, ids []uuid.UUID) ([]*BloodUnit, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+unitCols+` FROM blood_unit WHERE id = ANY($1) ORDER BY id ASC FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) ApplyAllocation(ctx context.Context, id uuid.UUID, newRemaining int, status Status) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_unit SET remaining_ml=$2, status=$3, updated_at=NOW() WHERE id=$1`,
		id, newRemaining, status)
	return err
}

func (r *repoPG) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_unit SET status=$2, updated_at=NOW()
		WHERE expires_at < $1 AND status IN ($3, $4, $5)`,
		now, StatusExpired, StatusTesting, StatusAvailable, StatusReserved)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func collect(rows pgx.Rows) ([]*BloodUnit, error) {
	var items []*BloodUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}
