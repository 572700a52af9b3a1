package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sazaba/wppai-server-sub000/internal/schedule"
)

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const serviceColumns = `id, tenant_id, name, duration_min, price_min, price_max,
	aliases, enabled, created_at, updated_at`

// Repository persists tenant services in Postgres.
type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// ListEnabled returns the tenant's bookable services ordered by name.
func (r *Repository) ListEnabled(ctx context.Context, tenantID string) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id = $1 AND enabled
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list enabled services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

// List returns every service of the tenant, disabled ones included.
func (r *Repository) List(ctx context.Context, tenantID string) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id = $1
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, schedule.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get service: %w", err)
	}
	return svc, nil
}

// Create inserts a service row. Name uniqueness per tenant is enforced by the
// database; a duplicate surfaces as a validation error.
func (r *Repository) Create(ctx context.Context, svc *Service) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO services (id, tenant_id, name, duration_min, price_min, price_max, aliases, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		svc.ID, svc.TenantID, svc.Name, svc.DurationMin, svc.PriceMin, svc.PriceMax, svc.Aliases, svc.Enabled,
	).Scan(&svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return schedule.NewValidationError("name", "already exists")
		}
		return fmt.Errorf("catalog: create service: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a service.
func (r *Repository) Update(ctx context.Context, svc *Service) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE services
		SET name = $3, duration_min = $4, price_min = $5, price_max = $6,
		    aliases = $7, enabled = $8, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		svc.ID, svc.TenantID, svc.Name, svc.DurationMin, svc.PriceMin, svc.PriceMax, svc.Aliases, svc.Enabled)
	if err != nil {
		return fmt.Errorf("catalog: update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

// Delete removes a service row outright. Appointments keep the service name
// denormalized, so history survives the delete.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM services WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func scanServices(rows pgx.Rows) ([]Service, error) {
	var out []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		out = append(out, *svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate services: %w", err)
	}
	return out, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var svc Service
	err := row.Scan(
		&svc.ID, &svc.TenantID, &svc.Name, &svc.DurationMin, &svc.PriceMin,
		&svc.PriceMax, &svc.Aliases, &svc.Enabled, &svc.CreatedAt, &svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}
