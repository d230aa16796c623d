package deals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

const dealColumns = `id, tenant_id, team_id, owner_id, title, amount_cents, currency, stage,
	contact_id, created_at, updated_at`

// Repository handles deal persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a deals repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	err := row.Scan(&d.ID, &d.TenantID, &d.TeamID, &d.OwnerID, &d.Title, &d.AmountCents,
		&d.Currency, &d.Stage, &d.ContactID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts a deal. Scope fields must already be stamped.
func (r *Repository) Create(ctx context.Context, d *models.Deal) error {
	const q = `INSERT INTO deals (tenant_id, team_id, owner_id, title, amount_cents, currency, stage, contact_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.TenantID, d.TeamID, d.OwnerID,
		d.Title, d.AmountCents, d.Currency, d.Stage, d.ContactID).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetByID returns a deal visible to the scope, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, scope tenancy.Scope, id int64) (*models.Deal, error) {
	where, args := scope.And("id = $1", []any{id})
	return scanDeal(r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE `+where, args...))
}

// List returns the scope's deals, optionally filtered by stage.
func (r *Repository) List(ctx context.Context, scope tenancy.Scope, stage string) ([]models.Deal, error) {
	var clause string
	var args []any
	if stage != "" {
		clause = "stage = $1"
		args = append(args, stage)
	}
	where, args := scope.And(clause, args)
	q := `SELECT ` + dealColumns + ` FROM deals`
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// Update rewrites a deal's mutable fields; tenant_id stays untouched.
func (r *Repository) Update(ctx context.Context, scope tenancy.Scope, d *models.Deal) error {
	where, args := scope.And("id = $6",
		[]any{d.Title, d.AmountCents, d.Currency, d.Stage, d.ContactID, d.ID})
	q := `UPDATE deals SET title = $1, amount_cents = $2, currency = $3, stage = $4,
		contact_id = $5, updated_at = NOW() WHERE ` + where
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateStage moves a deal to a new pipeline stage.
func (r *Repository) UpdateStage(ctx context.Context, scope tenancy.Scope, id int64, stage models.DealStage) error {
	where, args := scope.And("id = $2", []any{string(stage), id})
	tag, err := r.pool.Exec(ctx, `UPDATE deals SET stage = $1, updated_at = NOW() WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a deal visible to the scope.
func (r *Repository) Delete(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $1", []any{id})
	tag, err := r.pool.Exec(ctx, `DELETE FROM deals WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
