package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/tenancy"
)

// Summary is one tenant's headline numbers.
type Summary struct {
	TenantID          int64            `json:"tenant_id"`
	Contacts          int64            `json:"contacts"`
	DealsByStage      map[string]int64 `json:"deals_by_stage"`
	PipelineCents     int64            `json:"pipeline_cents"`
	OpenTickets       int64            `json:"open_tickets"`
	PublishedArticles int64            `json:"published_articles"`
}

// TenantReport is one row of the platform-wide report.
type TenantReport struct {
	TenantID int64 `json:"tenant_id"`
	Users    int64 `json:"users"`
	Contacts int64 `json:"contacts"`
	Deals    int64 `json:"deals"`
	Tickets  int64 `json:"tickets"`
}

// Repository computes aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summarize computes the scope's tenant summary. All queries carry the scope
// predicate.
func (r *Repository) Summarize(ctx context.Context, scope tenancy.Scope) (*Summary, error) {
	s := &Summary{TenantID: scope.ReadTenant(), DealsByStage: map[string]int64{}}

	where, args := scope.And("", nil)
	suffix := ""
	if where != "" {
		suffix = " WHERE " + where
	}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts`+suffix, args...).Scan(&s.Contacts); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT stage, COUNT(*), COALESCE(SUM(amount_cents), 0) FROM deals`+suffix+` GROUP BY stage`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var stage string
		var count, cents int64
		if err := rows.Scan(&stage, &count, &cents); err != nil {
			rows.Close()
			return nil, err
		}
		s.DealsByStage[stage] = count
		if stage != "lost" {
			s.PipelineCents += cents
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	openWhere, openArgs := scope.And("status <> $1", []any{"closed"})
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+openWhere, openArgs...).Scan(&s.OpenTickets); err != nil {
		return nil, err
	}

	pubWhere, pubArgs := scope.And("status = $1", []any{"published"})
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles WHERE `+pubWhere, pubArgs...).Scan(&s.PublishedArticles); err != nil {
		return nil, err
	}
	return s, nil
}

// TenantReports computes per-tenant counts across the whole platform. This is
// the one read that deliberately skips the tenant filter; the handler gates it
// behind the admin role.
func (r *Repository) TenantReports(ctx context.Context) ([]TenantReport, error) {
	const q = `
		SELECT t.tenant_id,
		       COALESCE(u.n, 0), COALESCE(c.n, 0), COALESCE(d.n, 0), COALESCE(tk.n, 0)
		FROM (
			SELECT DISTINCT tenant_id FROM contacts
			UNION SELECT DISTINCT tenant_id FROM deals
			UNION SELECT DISTINCT tenant_id FROM tickets
			UNION SELECT DISTINCT tenant_id FROM users WHERE tenant_id IS NOT NULL AND tenant_id > 0
		) t
		LEFT JOIN (SELECT tenant_id, COUNT(*) n FROM users GROUP BY tenant_id) u ON u.tenant_id = t.tenant_id
		LEFT JOIN (SELECT tenant_id, COUNT(*) n FROM contacts GROUP BY tenant_id) c ON c.tenant_id = t.tenant_id
		LEFT JOIN (SELECT tenant_id, COUNT(*) n FROM deals GROUP BY tenant_id) d ON d.tenant_id = t.tenant_id
		LEFT JOIN (SELECT tenant_id, COUNT(*) n FROM tickets GROUP BY tenant_id) tk ON tk.tenant_id = t.tenant_id
		ORDER BY t.tenant_id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []TenantReport
	for rows.Next() {
		var rep TenantReport
		if err := rows.Scan(&rep.TenantID, &rep.Users, &rep.Contacts, &rep.Deals, &rep.Tickets); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
