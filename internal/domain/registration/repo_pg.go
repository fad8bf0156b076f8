package registration

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

const regCols = `id, donor_id, facility_id, status, preferred_date, version_id, created_at, updated_at`

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	err := row.Scan(&reg.ID, &reg.DonorID, &reg.FacilityID, &reg.Status,
		&reg.PreferredDate, &reg.VersionID, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("registration not found")
	}
	return &reg, err
}

func (r *repoPG) Create(ctx context.Context, reg *Registration) error {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO registration (id, donor_id, facility_id, status, preferred_date, version_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		reg.ID, reg.DonorID, reg.FacilityID, reg.Status, reg.PreferredDate, reg.VersionID).
		Scan(&reg.CreatedAt, &reg.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return scanRegistration(r.conn(ctx).QueryRow(ctx,
		`SELECT `+regCols+` FROM registration WHERE id = $1`, id))
}

func (r *repoPG) ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*Registration, int, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM registration WHERE donor_id = $1`,
		`SELECT `+regCols+` FROM registration WHERE donor_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		donorID, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Registration, int, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM registration WHERE status = $1`,
		`SELECT `+regCols+` FROM registration WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
}

func (r *repoPG) list(ctx context.Context, countSQL, selectSQL string, key interface{}, limit, offset int) ([]*Registration, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countSQL, key).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, selectSQL, key, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, reg)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, expectedVersion int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE registration
		SET status = $2, version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1 AND version_id = $3`,
		id, to, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ConcurrentModification("registration was modified by another request")
	}
	return nil
}

func (r *repoPG) AppendStatusLog(ctx context.Context, entry *StatusLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO registration_status_log (id, registration_id, status, changed_by, changed_at)
		VALUES ($1,$2,$3,$4,$5)`,
		entry.ID, entry.RegistrationID, entry.Status, entry.ChangedBy, entry.ChangedAt)
	return err
}

func (r *repoPG) ListStatusLog(ctx context.Context, registrationID uuid.UUID) ([]*StatusLog, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, registration_id, status, changed_by, changed_at
		FROM registration_status_log
		WHERE registration_id = $1
		ORDER BY changed_at ASC`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*StatusLog
	for rows.Next() {
		var e StatusLog
		if err := rows.Scan(&e.ID, &e.RegistrationID, &e.Status, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
