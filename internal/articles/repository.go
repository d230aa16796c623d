package articles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

const articleColumns = `id, tenant_id, team_id, title, slug, body, status, published_at,
	created_at, updated_at`

// Repository handles help-center article persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an articles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanArticle(row pgx.Row) (*models.Article, error) {
	var a models.Article
	err := row.Scan(&a.ID, &a.TenantID, &a.TeamID, &a.Title, &a.Slug, &a.Body,
		&a.Status, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts an article. Scope fields must already be stamped.
func (r *Repository) Create(ctx context.Context, a *models.Article) error {
	const q = `INSERT INTO articles (tenant_id, team_id, title, slug, body, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, a.TenantID, a.TeamID, a.Title, a.Slug, a.Body, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID returns an article visible to the scope, or nil when not found.
func (r *Repository) GetByID(ctx context.Context, scope tenancy.Scope, id int64) (*models.Article, error) {
	where, args := scope.And("id = $1", []any{id})
	return scanArticle(r.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE `+where, args...))
}

// List returns the scope's articles.
func (r *Repository) List(ctx context.Context, scope tenancy.Scope) ([]models.Article, error) {
	where, args := scope.And("", nil)
	q := `SELECT ` + articleColumns + ` FROM articles`
	if where != "" {
		q += ` WHERE ` + where
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY updated_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListPublished returns one tenant's published articles for the public help
// center. The tenant predicate is explicit here: the caller is anonymous.
func (r *Repository) ListPublished(ctx context.Context, tenantID int64) ([]models.Article, error) {
	const q = `SELECT ` + articleColumns + ` FROM articles
		WHERE tenant_id = $1 AND status = $2 ORDER BY published_at DESC`
	rows, err := r.pool.Query(ctx, q, tenantID, models.ArticleStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// GetPublishedBySlug returns one tenant's published article by slug, or nil.
func (r *Repository) GetPublishedBySlug(ctx context.Context, tenantID int64, slug string) (*models.Article, error) {
	const q = `SELECT ` + articleColumns + ` FROM articles
		WHERE tenant_id = $1 AND slug = $2 AND status = $3`
	return scanArticle(r.pool.QueryRow(ctx, q, tenantID, slug, models.ArticleStatusPublished))
}

// Update rewrites an article's mutable fields; tenant_id stays untouched.
func (r *Repository) Update(ctx context.Context, scope tenancy.Scope, a *models.Article) error {
	where, args := scope.And("id = $4", []any{a.Title, a.Slug, a.Body, a.ID})
	q := `UPDATE articles SET title = $1, slug = $2, body = $3, updated_at = NOW() WHERE ` + where
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Publish marks the article published and stamps published_at.
func (r *Repository) Publish(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $2", []any{models.ArticleStatusPublished, id})
	q := `UPDATE articles SET status = $1, published_at = NOW(), updated_at = NOW() WHERE ` + where
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes an article visible to the scope.
func (r *Repository) Delete(ctx context.Context, scope tenancy.Scope, id int64) error {
	where, args := scope.And("id = $1", []any{id})
	tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE `+where, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func collect(rows pgx.Rows) ([]models.Article, error) {
	var list []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
