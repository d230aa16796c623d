package campaigns

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

const campaignColumns = `id, tenant_id, team_id, owner_id, name, subject, body_html, status,
	sent_at, created_at, updated_at`

// Repository handles campaign persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a campaigns repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var cp models.Campaign
	err := row.Scan(&cp.ID, &cp.TenantID, &cp.TeamID, &cp.OwnerID, &cp.Name, &cp.Subject,
		&cp.BodyHTML, &cp.Status, &cp.SentAt, &cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}

// Create inserts a campaign. Scope fields must already be stamped.
func (r *Repository) Create(ctx context.Context, cp *models.Campaign) error {
	const q = `INSERT INTO campaigns (tenant_id, team_id, owner_id, name, subject, body_html, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, cp.TenantID, cp.TeamID, cp.OwnerID,
		cp.Name, cp.Subject, cp.BodyHTML, cp.Status).
		Scan(&cp.ID, &cp.CreatedAt, &cp.UpdatedAt)
}

// GetByID returns a campaign visible to the scope, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, scope tenancy.Scope, id int64) (*models.Campaign, error) {
	where, args := scope.And("id = $1", []any{id})
	return scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE `+where, args...))
}

// List returns the scope's campaigns.
func (r *Repository) List(ctx context.Context, scope tenancy.Scope) ([]models.Campaign, error) {
	where, args := scope.And("", nil)
	q := `SELECT ` + campaignColumns + ` FROM campaigns`
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Campaign
	for rows.Next() {
		cp, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cp)
	}
	return list, rows.Err()
}

// Update rewrites a campaign's mutable fields; tenant_id stays untouched.
func (r *Repository) Update(ctx context.Context, scope tenancy.Scope, cp *models.Campaign) error {
	where, args := scope.And("id = $4", []any{cp.Name, cp.Subject, cp.BodyHTML, cp.ID})
	q := `UPDATE campaigns SET name = $1, subject = $2, body_html = $3, updated_at = NOW() WHERE ` + where
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkSending moves a draft campaign to the sending state. The status guard
// makes concurrent send requests race safely: only one wins.
func (r *Repository) MarkSending(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $3 AND status = $2", []any{models.CampaignStatusSending, models.CampaignStatusDraft, id})
	tag, err := r.pool.Exec(ctx, `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ResetDraft returns a sending campaign to draft so the send can be retried.
func (r *Repository) ResetDraft(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $3 AND status = $2", []any{models.CampaignStatusDraft, models.CampaignStatusSending, id})
	tag, err := r.pool.Exec(ctx, `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkSent records that all of the campaign's emails were enqueued.
func (r *Repository) MarkSent(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $2", []any{models.CampaignStatusSent, id})
	tag, err := r.pool.Exec(ctx, `UPDATE campaigns SET status = $1, sent_at = NOW(), updated_at = NOW() WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a campaign visible to the scope.
func (r *Repository) Delete(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $1", []any{id})
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecipientEmails returns the distinct contact emails of the campaign's
// tenant.
func (r *Repository) RecipientEmails(ctx context.Context, tenantID int64) ([]string, error) {
	const q = `SELECT DISTINCT email FROM contacts WHERE tenant_id = $1 AND email <> ''`
	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
