package bloodrequest

import (
	"context"
	"errors"
	"strconv"
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

const requestCols = `id, facility_id, blood_group, component, quantity_ml, status, note,
	created_by, created_at, updated_at`

func scanRequest(row pgx.Row) (*BloodRequest, error) {
	var br BloodRequest
	err := row.Scan(&br.ID, &br.FacilityID, &br.BloodGroup, &br.Component, &br.QuantityML,
		&br.Status, &br.Note, &br.CreatedBy, &br.CreatedAt, &br.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("blood request not found")
	}
	return &br, err
}

func (r *repoPG) Create(ctx context.Context, br *BloodRequest) error {
	if br.ID == uuid.Nil {
		br.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_request (id, facility_id, blood_group, component, quantity_ml, status, note, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		br.ID, br.FacilityID, br.BloodGroup, br.Component, br.QuantityML, br.Status, br.Note, br.CreatedBy).
		Scan(&br.CreatedAt, &br.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM blood_request WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM blood_request WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) List(ctx context.Context, status Status, limit, offset int) ([]*BloodRequest, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_request `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	n := len(args)
	query := `SELECT ` + requestCols + ` FROM blood_request ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(n-1) + ` OFFSET $` + strconv.Itoa(n)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*BloodRequest
	for rows.Next() {
		br, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, br)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE blood_request SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return err
}

func (r *repoPG) CreateAssignment(ctx context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO assignment (id, request_id, unit_id, quantity_ml, transporter_id, scheduled_delivery_date, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		a.ID, a.RequestID, a.UnitID, a.QuantityML, a.TransporterID, a.ScheduledDeliveryDate, a.Note).
		Scan(&a.CreatedAt)
}

func (r *repoPG) ListAssignments(ctx context.Context, requestID uuid.UUID) ([]*Assignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, request_id, unit_id, quantity_ml, transporter_id, scheduled_delivery_date, note, delivered_at, created_at
		FROM assignment WHERE request_id = $1 ORDER BY created_at ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.UnitID, &a.QuantityML,
			&a.TransporterID, &a.ScheduledDeliveryDate, &a.Note, &a.DeliveredAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) MarkAssignmentsDelivered(ctx context.Context, requestID uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE assignment SET delivered_at=$2 WHERE request_id=$1 AND delivered_at IS NULL`,
		requestID, at)
	return err
}
