package policy

import "github.com/nimbus-crm/backend/internal/models"

// DealPolicy authorizes actions on deals.
type DealPolicy struct{ Base }

// NewDealPolicy creates a deal policy.
func NewDealPolicy(base Base) DealPolicy { return DealPolicy{base} }

// View allows any principal passing the base tenant/team decision.
func (p DealPolicy) View(u *models.User, d *models.Deal) *Denial {
	return p.canAccess(u, d)
}

// Update uses the same base decision as View.
func (p DealPolicy) Update(u *models.User, d *models.Deal) *Denial {
	return p.canAccess(u, d)
}

// UpdateStage uses the same base decision as Update.
func (p DealPolicy) UpdateStage(u *models.User, d *models.Deal) *Denial {
	return p.canAccess(u, d)
}

// Delete additionally requires the admin or manager role.
func (p DealPolicy) Delete(u *models.User, d *models.Deal) *Denial {
	if denial := p.canAccess(u, d); denial != nil {
		return denial
	}
	return p.requireRole(u, "delete deals", models.RoleAdmin, models.RoleManager)
}
