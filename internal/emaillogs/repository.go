package emaillogs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

const logColumns = `id, tenant_id, campaign_id, ticket_id, recipient_email, COALESCE(subject, ''), status,
	COALESCE(error_message, ''), sent_at, created_at`

// Repository handles email log persistence. The worker records delivery
// attempts here; the API reads them per tenant.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a queued log row for an email about to be delivered.
func (r *Repository) Create(ctx context.Context, l *models.EmailLog) error {
	const q = `INSERT INTO email_logs (tenant_id, campaign_id, ticket_id, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, l.TenantID, l.CampaignID, l.TicketID,
		l.RecipientEmail, l.Subject, l.Status).
		Scan(&l.ID, &l.CreatedAt)
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	const q = `UPDATE email_logs SET status = $1, sent_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, models.EmailStatusSent, id)
	return err
}

// MarkFailed records a failed delivery with its error.
func (r *Repository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	const q = `UPDATE email_logs SET status = $1, error_message = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, models.EmailStatusFailed, errMsg, id)
	return err
}

// List returns the scope's email logs newest-first, optionally filtered by
// status.
func (r *Repository) List(ctx context.Context, scope tenancy.Scope, status string) ([]models.EmailLog, error) {
	var clause string
	var args []any
	if status != "" {
		clause = "status = $1"
		args = append(args, status)
	}
	where, args := scope.And(clause, args)
	q := `SELECT ` + logColumns + ` FROM email_logs`
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC LIMIT 500`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.EmailLog
	for rows.Next() {
		var l models.EmailLog
		err := rows.Scan(&l.ID, &l.TenantID, &l.CampaignID, &l.TicketID, &l.RecipientEmail,
			&l.Subject, &l.Status, &l.ErrorMessage, &l.SentAt, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
