package articles

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/policy"
	"github.com/nimbus-crm/backend/internal/tenancy"
	"github.com/nimbus-crm/backend/pkg/response"
)

// Handler handles article HTTP endpoints, including the unauthenticated help
// center.
type Handler struct {
	repo     *Repository
	policy   policy.ArticlePolicy
	assigner tenancy.TeamAssigner
	logger   *zap.Logger
}

// NewHandler creates an articles handler.
func NewHandler(repo *Repository, pol policy.ArticlePolicy, assigner tenancy.TeamAssigner, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, policy: pol, assigner: assigner, logger: logger}
}

// ArticleRequest is the body for POST/PUT article endpoints.
type ArticleRequest struct {
	Title string `json:"title" binding:"required"`
	Slug  string `json:"slug"`
	Body  string `json:"body"`
}

// slugify lowercases the title and collapses runs of non-alphanumerics into
// single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// List handles GET /articles.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	list, err := h.repo.List(c.Request.Context(), scope)
	if err != nil {
		response.Internal(c, "failed to load articles")
		return
	}
	response.OK(c, list)
}

// Create handles POST /articles. New articles start as drafts.
func (h *Handler) Create(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Title)
	}
	article := &models.Article{
		Title:  strings.TrimSpace(req.Title),
		Slug:   slug,
		Body:   req.Body,
		Status: models.ArticleStatusDraft,
	}
	if err := scope.StampNew(c.Request.Context(), h.assigner, article); err != nil {
		h.logger.Error("stamp article", zap.Error(err))
		response.Internal(c, "failed to create article")
		return
	}
	if err := h.repo.Create(c.Request.Context(), article); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			response.Conflict(c, "an article with this slug already exists")
			return
		}
		response.Internal(c, "failed to create article")
		return
	}
	response.Created(c, article)
}

// GetByID handles GET /articles/:id. A cross-tenant id reads as not found.
func (h *Handler) GetByID(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	article, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), article); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	response.OK(c, article)
}

// Update handles PUT /articles/:id.
func (h *Handler) Update(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	article, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Update(middleware.PrincipalFrom(c), article); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	article.Title = strings.TrimSpace(req.Title)
	if req.Slug != "" {
		article.Slug = req.Slug
	}
	article.Body = req.Body
	if err := h.repo.Update(c.Request.Context(), scope, article); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "article not found")
			return
		}
		response.Internal(c, "failed to update article")
		return
	}
	response.OK(c, article)
}

// Publish handles POST /articles/:id/publish.
func (h *Handler) Publish(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	article, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Publish(middleware.PrincipalFrom(c), article); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.Publish(c.Request.Context(), scope, article.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "article not found")
			return
		}
		response.Internal(c, "failed to publish article")
		return
	}
	article.Status = models.ArticleStatusPublished
	response.OK(c, article)
}

// Delete handles DELETE /articles/:id.
func (h *Handler) Delete(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	article, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Delete(middleware.PrincipalFrom(c), article); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.Delete(c.Request.Context(), scope, article.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "article not found")
			return
		}
		response.Internal(c, "failed to delete article")
		return
	}
	response.NoContent(c)
}

// PublicList handles GET /help/articles. Anonymous requests resolve their
// tenant from the middleware; only published articles are visible.
func (h *Handler) PublicList(c *gin.Context) {
	tenantID := middleware.TenantIDFrom(c)
	list, err := h.repo.ListPublished(c.Request.Context(), tenantID)
	if err != nil {
		response.Internal(c, "failed to load articles")
		return
	}
	response.OK(c, list)
}

// PublicGetBySlug handles GET /help/articles/:slug.
func (h *Handler) PublicGetBySlug(c *gin.Context) {
	tenantID := middleware.TenantIDFrom(c)
	article, err := h.repo.GetPublishedBySlug(c.Request.Context(), tenantID, c.Param("slug"))
	if err != nil {
		response.Internal(c, "failed to load article")
		return
	}
	if article == nil {
		response.NotFound(c, "article not found")
		return
	}
	response.OK(c, article)
}

// load fetches the article under the scope, writing the error response and
// returning ok=false when it cannot.
func (h *Handler) load(c *gin.Context, scope tenancy.Scope) (*models.Article, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid article id")
		return nil, false
	}
	article, err := h.repo.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		response.Internal(c, "failed to load article")
		return nil, false
	}
	if article == nil {
		response.NotFound(c, "article not found")
		return nil, false
	}
	return article, true
}
