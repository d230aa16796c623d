package tickets

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

const ticketColumns = `id, tenant_id, team_id, owner_id, subject, body, status, priority,
	assignee_id, contact_id, created_at, updated_at`

// Repository handles ticket persistence, including replies and attachment
// records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tickets repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.TenantID, &t.TeamID, &t.OwnerID, &t.Subject, &t.Body,
		&t.Status, &t.Priority, &t.AssigneeID, &t.ContactID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a ticket. Scope fields must already be stamped.
func (r *Repository) Create(ctx context.Context, t *models.Ticket) error {
	const q = `INSERT INTO tickets (tenant_id, team_id, owner_id, subject, body, status, priority, contact_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.TenantID, t.TeamID, t.OwnerID,
		t.Subject, t.Body, t.Status, t.Priority, t.ContactID).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID returns a ticket visible to the scope, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, scope tenancy.Scope, id int64) (*models.Ticket, error) {
	where, args := scope.And("id = $1", []any{id})
	return scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE `+where, args...))
}

// List returns the scope's tickets, optionally filtered by status.
func (r *Repository) List(ctx context.Context, scope tenancy.Scope, status string) ([]models.Ticket, error) {
	var clause string
	var args []any
	if status != "" {
		clause = "status = $1"
		args = append(args, status)
	}
	where, args := scope.And(clause, args)
	q := `SELECT ` + ticketColumns + ` FROM tickets`
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Update rewrites a ticket's mutable fields; tenant_id stays untouched.
func (r *Repository) Update(ctx context.Context, scope tenancy.Scope, t *models.Ticket) error {
	where, args := scope.And("id = $6",
		[]any{t.Subject, t.Body, t.Status, t.Priority, t.ContactID, t.ID})
	q := `UPDATE tickets SET subject = $1, body = $2, status = $3, priority = $4,
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

// Assign sets the ticket's assignee and, when the assignee has a team, moves
// the ticket onto it.
func (r *Repository) Assign(ctx context.Context, scope tenancy.Scope, id, assigneeID int64, teamID *int64) error {
	where, args := scope.And("id = $3", []any{assigneeID, teamID, id})
	q := `UPDATE tickets SET assignee_id = $1, team_id = COALESCE($2, team_id),
		updated_at = NOW() WHERE ` + where
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetStatus moves the ticket to a new status.
func (r *Repository) SetStatus(ctx context.Context, scope tenancy.Scope, id int64, status string) error {
	where, args := scope.And("id = $2", []any{status, id})
	tag, err := r.pool.Exec(ctx, `UPDATE tickets SET status = $1, updated_at = NOW() WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a ticket visible to the scope. Replies and attachment rows
// cascade.
func (r *Repository) Delete(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $1", []any{id})
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateReply appends a reply to the ticket's thread. The caller checks the
// ticket is visible first, so replies key on ticket_id alone.
func (r *Repository) CreateReply(ctx context.Context, reply *models.TicketReply) error {
	const q = `INSERT INTO ticket_replies (ticket_id, author_id, body)
		VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, reply.TicketID, reply.AuthorID, reply.Body).
		Scan(&reply.ID, &reply.CreatedAt)
}

// ListReplies returns the ticket's thread oldest-first.
func (r *Repository) ListReplies(ctx context.Context, ticketID int64) ([]models.TicketReply, error) {
	const q = `SELECT id, ticket_id, author_id, body, created_at
		FROM ticket_replies WHERE ticket_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.TicketReply
	for rows.Next() {
		var reply models.TicketReply
		if err := rows.Scan(&reply.ID, &reply.TicketID, &reply.AuthorID, &reply.Body, &reply.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, reply)
	}
	return list, rows.Err()
}

// CreateAttachment records an attachment's S3 key for a ticket.
func (r *Repository) CreateAttachment(ctx context.Context, a *models.TicketAttachment) error {
	const q = `INSERT INTO ticket_attachments (ticket_id, tenant_id, file_name, s3_key, size_bytes)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, a.TicketID, a.TenantID, a.FileName, a.S3Key, a.SizeBytes).
		Scan(&a.ID, &a.CreatedAt)
}

// ListAttachments returns the ticket's attachment records.
func (r *Repository) ListAttachments(ctx context.Context, ticketID int64) ([]models.TicketAttachment, error) {
	const q = `SELECT id, ticket_id, tenant_id, file_name, s3_key, size_bytes, created_at
		FROM ticket_attachments WHERE ticket_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.TicketAttachment
	for rows.Next() {
		var a models.TicketAttachment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.TenantID, &a.FileName, &a.S3Key, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetAttachment returns one attachment record for the ticket, or nil when not
// found.
func (r *Repository) GetAttachment(ctx context.Context, ticketID, attachmentID int64) (*models.TicketAttachment, error) {
	const q = `SELECT id, ticket_id, tenant_id, file_name, s3_key, size_bytes, created_at
		FROM ticket_attachments WHERE id = $1 AND ticket_id = $2`
	var a models.TicketAttachment
	err := r.pool.QueryRow(ctx, q, attachmentID, ticketID).
		Scan(&a.ID, &a.TicketID, &a.TenantID, &a.FileName, &a.S3Key, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// TenantUser returns the user when it exists and belongs to the tenant, or
// nil otherwise. Used to validate assignees.
func (r *Repository) TenantUser(ctx context.Context, tenantID, userID int64) (*models.User, error) {
	const q = `SELECT id, tenant_id, team_id, email, full_name, role
		FROM users WHERE id = $1 AND (tenant_id = $2 OR (tenant_id IS NULL AND id = $2))
		AND deactivated_at IS NULL`
	var u models.User
	err := r.pool.QueryRow(ctx, q, userID, tenantID).
		Scan(&u.ID, &u.TenantID, &u.TeamID, &u.Email, &u.FullName, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ContactEmail returns the ticket contact's email inside the tenant, or empty
// when the contact is missing.
func (r *Repository) ContactEmail(ctx context.Context, tenantID, contactID int64) (string, error) {
	const q = `SELECT email FROM contacts WHERE id = $1 AND tenant_id = $2`
	var email string
	err := r.pool.QueryRow(ctx, q, contactID, tenantID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return email, nil
}
