package contacts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

const contactColumns = `id, tenant_id, team_id, owner_id, first_name, last_name, email,
	COALESCE(phone,''), COALESCE(company,''), created_at, updated_at`

// Repository handles contact persistence. Every read composes the scope's
// tenant predicate; cross-tenant ids simply produce no rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a contacts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.TenantID, &c.TeamID, &c.OwnerID, &c.FirstName, &c.LastName,
		&c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a contact. Scope fields must already be stamped.
func (r *Repository) Create(ctx context.Context, c *models.Contact) error {
	const q = `INSERT INTO contacts (tenant_id, team_id, owner_id, first_name, last_name, email, phone, company)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), NULLIF($8,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.TenantID, c.TeamID, c.OwnerID,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID returns a contact visible to the scope, or nil when not found
// (including cross-tenant ids).
func (r *Repository) GetByID(ctx context.Context, scope tenancy.Scope, id int64) (*models.Contact, error) {
	where, args := scope.And("id = $1", []any{id})
	return scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE `+where, args...))
}

// List returns the scope's contacts, newest first.
func (r *Repository) List(ctx context.Context, scope tenancy.Scope) ([]models.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts`
	where, args := scope.And("", nil)
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Update rewrites a contact's mutable fields. tenant_id is immutable and
// never part of the SET list.
func (r *Repository) Update(ctx context.Context, scope tenancy.Scope, c *models.Contact) error {
	where, args := scope.And("id = $6",
		[]any{c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.ID})
	q := `UPDATE contacts SET first_name = $1, last_name = $2, email = $3,
		phone = NULLIF($4,''), company = NULLIF($5,''), updated_at = NOW() WHERE ` + where
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a contact visible to the scope.
func (r *Repository) Delete(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $1", []any{id})
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
