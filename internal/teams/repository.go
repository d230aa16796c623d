package teams

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
)

// Repository handles team persistence. Teams are addressed by tenant id
// directly (not through a scope): they are tenant metadata, and the assigner
// needs them outside a request context.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a teams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a team for a tenant.
func (r *Repository) Create(ctx context.Context, team *models.Team) error {
	const q = `INSERT INTO teams (tenant_id, name) VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, team.TenantID, team.Name).
		Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

// GetByID returns a team by id within a tenant, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, tenantID, id int64) (*models.Team, error) {
	const q = `SELECT id, tenant_id, name, created_at, updated_at
		FROM teams WHERE id = $1 AND tenant_id = $2`
	var t models.Team
	err := r.pool.QueryRow(ctx, q, id, tenantID).
		Scan(&t.ID, &t.TenantID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListByTenant returns the tenant's teams ordered by id (the order the
// round-robin assigner cycles through).
func (r *Repository) ListByTenant(ctx context.Context, tenantID int64) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, created_at, updated_at FROM teams WHERE tenant_id = $1 ORDER BY id`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Delete removes a team within a tenant.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
