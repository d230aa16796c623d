package policy

import "github.com/nimbus-crm/backend/internal/models"

// ArticlePolicy authorizes actions on help-center articles.
type ArticlePolicy struct{ Base }

// NewArticlePolicy creates an article policy.
func NewArticlePolicy(base Base) ArticlePolicy { return ArticlePolicy{base} }

// View allows any principal passing the base tenant/team decision.
func (p ArticlePolicy) View(u *models.User, a *models.Article) *Denial {
	return p.canAccess(u, a)
}

// Update uses the same base decision as View.
func (p ArticlePolicy) Update(u *models.User, a *models.Article) *Denial {
	return p.canAccess(u, a)
}

// Publish requires the admin or service_manager role.
func (p ArticlePolicy) Publish(u *models.User, a *models.Article) *Denial {
	if d := p.canAccess(u, a); d != nil {
		return d
	}
	return p.requireRole(u, "publish articles", models.RoleAdmin, models.RoleServiceManager)
}

// Delete requires the admin or service_manager role.
func (p ArticlePolicy) Delete(u *models.User, a *models.Article) *Denial {
	if d := p.canAccess(u, a); d != nil {
		return d
	}
	return p.requireRole(u, "delete articles", models.RoleAdmin, models.RoleServiceManager)
}
