package policy

import "github.com/nimbus-crm/backend/internal/models"

// ContactPolicy authorizes actions on contacts.
type ContactPolicy struct{ Base }

// NewContactPolicy creates a contact policy.
func NewContactPolicy(base Base) ContactPolicy { return ContactPolicy{base} }

// View allows any principal passing the base tenant/team decision.
func (p ContactPolicy) View(u *models.User, c *models.Contact) *Denial {
	return p.canAccess(u, c)
}

// Update uses the same base decision as View.
func (p ContactPolicy) Update(u *models.User, c *models.Contact) *Denial {
	return p.canAccess(u, c)
}

// Delete additionally requires the admin or manager role.
func (p ContactPolicy) Delete(u *models.User, c *models.Contact) *Denial {
	if d := p.canAccess(u, c); d != nil {
		return d
	}
	return p.requireRole(u, "delete contacts", models.RoleAdmin, models.RoleManager)
}
