package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// Querier is the subset of pgx satisfied by both a pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB adds transaction support on top of Querier. *pgxpool.Pool and the
// pgxmock pool both satisfy it.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository provides persistence for appointments. It also implements
// schedule.AppointmentSource for the conflict checker and slot finder.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool (or mock).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: db}
}

const activeFilter = `deleted_at IS NULL AND status NOT IN ('cancelled', 'no_show')`

const apptColumns = `id, tenant_id, conversation_id, customer_name, customer_phone,
	service_name, start_at, end_at, timezone, status, notes, created_at, updated_at, deleted_at`

// CountOverlapping counts active appointments intersecting [start, end),
// optionally ignoring one id. Half-open rule: a.start < end AND a.end > start.
func (r *Repository) CountOverlapping(ctx context.Context, tenantID string, start, end time.Time, excludeID string) (int, error) {
	return r.countOverlapping(ctx, r.db, tenantID, start, end, excludeID)
}

func (r *Repository) countOverlapping(ctx context.Context, q Querier, tenantID string, start, end time.Time, excludeID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE tenant_id = $1 AND ` + activeFilter + `
		  AND start_at < $3 AND end_at > $2
		  AND ($4 = '' OR id::text <> $4)
	`
	var n int
	if err := q.QueryRow(ctx, query, tenantID, start, end, excludeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("appointments: count overlapping: %w", err)
	}
	return n, nil
}

// CountBetween counts active appointments starting inside [from, to).
func (r *Repository) CountBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE tenant_id = $1 AND ` + activeFilter + `
		  AND start_at >= $2 AND start_at < $3
	`
	var n int
	if err := r.db.QueryRow(ctx, query, tenantID, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("appointments: count between: %w", err)
	}
	return n, nil
}

// GetByID loads an appointment scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (*Appointment, error) {
	return r.getByID(ctx, r.db, tenantID, id)
}

func (r *Repository) getByID(ctx context.Context, q Querier, tenantID, id string) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1 AND tenant_id = $2`
	appt, err := scanAppointment(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, schedule.ErrNotFound
		}
		return nil, fmt.Errorf("appointments: load: %w", err)
	}
	return appt, nil
}

// findActiveDuplicate returns the active appointment with the same tenant,
// phone and exact start, or nil.
func (r *Repository) findActiveDuplicate(ctx context.Context, q Querier, tenantID, phone string, start time.Time) (*Appointment, error) {
	query := `
		SELECT ` + apptColumns + ` FROM appointments
		WHERE tenant_id = $1 AND customer_phone = $2 AND start_at = $3 AND ` + activeFilter + `
		LIMIT 1
	`
	appt, err := scanAppointment(q.QueryRow(ctx, query, tenantID, phone, start))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: duplicate lookup: %w", err)
	}
	return appt, nil
}

// insert writes a new row inside the caller's transaction.
func (r *Repository) insert(ctx context.Context, q Querier, a *Appointment) error {
	query := `
		INSERT INTO appointments (id, tenant_id, conversation_id, customer_name, customer_phone,
			service_name, start_at, end_at, timezone, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	if err := q.QueryRow(ctx, query,
		a.ID, a.TenantID, a.ConversationID, a.CustomerName, a.CustomerPhone,
		a.ServiceName, a.StartAt, a.EndAt, a.Timezone, string(a.Status), a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// updateSchedule moves an appointment inside the caller's transaction.
func (r *Repository) updateSchedule(ctx context.Context, q Querier, tenantID, id string, start, end time.Time, status Status) error {
	query := `
		UPDATE appointments
		SET start_at = $3, end_at = $4, status = $5, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`
	tag, err := q.Exec(ctx, query, id, tenantID, start, end, string(status))
	if err != nil {
		return fmt.Errorf("appointments: update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// markCancelled soft-deletes one appointment; already-cancelled rows are left
// untouched so the operation stays idempotent.
func (r *Repository) markCancelled(ctx context.Context, q Querier, tenantID, id string, at time.Time) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled', deleted_at = $3, updated_at = $3
		WHERE id = $1 AND tenant_id = $2 AND status <> 'cancelled'
	`
	if _, err := q.Exec(ctx, query, id, tenantID, at); err != nil {
		return fmt.Errorf("appointments: cancel: %w", err)
	}
	return nil
}

// MarkCancelledMany soft-deletes a batch of ids in one statement and returns
// how many rows actually changed.
func (r *Repository) MarkCancelledMany(ctx context.Context, tenantID string, ids []string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		UPDATE appointments
		SET status = 'cancelled', deleted_at = $3, updated_at = $3
		WHERE tenant_id = $1 AND id::text = ANY($2) AND status <> 'cancelled'
	`
	tag, err := r.db.Exec(ctx, query, tenantID, ids, at)
	if err != nil {
		return 0, fmt.Errorf("appointments: cancel many: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListBetween returns active appointments starting inside [from, to),
// chronologically.
func (r *Repository) ListBetween(ctx context.Context, tenantID string, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + ` FROM appointments
		WHERE tenant_id = $1 AND ` + activeFilter + `
		  AND start_at >= $2 AND start_at < $3
		ORDER BY start_at ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list between: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan row: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate rows: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.ConversationID, &a.CustomerName, &a.CustomerPhone,
		&a.ServiceName, &a.StartAt, &a.EndAt, &a.Timezone, &status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}
