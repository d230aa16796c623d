package policy

import "github.com/nimbus-crm/backend/internal/models"

// CampaignPolicy authorizes actions on email campaigns.
type CampaignPolicy struct{ Base }

// NewCampaignPolicy creates a campaign policy.
func NewCampaignPolicy(base Base) CampaignPolicy { return CampaignPolicy{base} }

// View allows any principal passing the base tenant/team decision.
func (p CampaignPolicy) View(u *models.User, c *models.Campaign) *Denial {
	return p.canAccess(u, c)
}

// Update uses the same base decision as View.
func (p CampaignPolicy) Update(u *models.User, c *models.Campaign) *Denial {
	return p.canAccess(u, c)
}

// Send requires the admin or manager role.
func (p CampaignPolicy) Send(u *models.User, c *models.Campaign) *Denial {
	if d := p.canAccess(u, c); d != nil {
		return d
	}
	return p.requireRole(u, "send campaigns", models.RoleAdmin, models.RoleManager)
}

// Delete requires the admin or manager role.
func (p CampaignPolicy) Delete(u *models.User, c *models.Campaign) *Denial {
	if d := p.canAccess(u, c); d != nil {
		return d
	}
	return p.requireRole(u, "delete campaigns", models.RoleAdmin, models.RoleManager)
}
