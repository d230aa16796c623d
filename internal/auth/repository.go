package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, tenant_id, team_id,
	COALESCE(organization_name,''), deactivated_at, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.TenantID, &u.TeamID,
		&u.OrganizationName, &u.DeactivatedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a user by email, or nil when not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

// CreateTenantOwner inserts a new tenant-owner user: by convention the owner's
// tenant_id equals their own id, so both steps run in one transaction.
func (r *Repository) CreateTenantOwner(ctx context.Context, email, passwordHash, fullName string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, full_name, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		email, passwordHash, fullName, string(models.RoleAdmin),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	row := tx.QueryRow(ctx,
		`UPDATE users SET tenant_id = id WHERE id = $1 RETURNING `+userColumns, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("set tenant owner: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

// CreateMember inserts a user inside an existing tenant.
func (r *Repository) CreateMember(ctx context.Context, tenantID int64, email, passwordHash, fullName string, role models.Role, teamID *int64) (*models.User, error) {
	q := `INSERT INTO users (email, password_hash, full_name, role, tenant_id, team_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, string(role), tenantID, teamID))
}

// ListByTenant returns the tenant's users for member management.
func (r *Repository) ListByTenant(ctx context.Context, tenantID int64) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, full_name, role, tenant_id, team_id, created_at
		FROM users WHERE tenant_id = $1 ORDER BY full_name, email`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.TenantID, &u.TeamID, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// UpdateTeam moves a user to a team (or clears it with nil). The tenant check
// keeps team reassignment inside the caller's tenant.
func (r *Repository) UpdateTeam(ctx context.Context, tenantID, userID int64, teamID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET team_id = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3`,
		teamID, userID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Deactivate soft-deactivates a user. Users are never deleted.
func (r *Repository) Deactivate(ctx context.Context, tenantID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deactivated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND deactivated_at IS NULL`,
		userID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
