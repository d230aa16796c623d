package policy

import (
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

// TicketPolicy authorizes actions on support tickets.
type TicketPolicy struct{ Base }

// NewTicketPolicy creates a ticket policy.
func NewTicketPolicy(base Base) TicketPolicy { return TicketPolicy{base} }

// View allows any principal passing the base tenant/team decision.
func (p TicketPolicy) View(u *models.User, t *models.Ticket) *Denial {
	return p.canAccess(u, t)
}

// Update uses the same base decision as View.
func (p TicketPolicy) Update(u *models.User, t *models.Ticket) *Denial {
	return p.canAccess(u, t)
}

// Assign requires the admin or service_manager role on top of the base decision.
func (p TicketPolicy) Assign(u *models.User, t *models.Ticket) *Denial {
	if d := p.canAccess(u, t); d != nil {
		return d
	}
	return p.requireRole(u, "assign tickets", models.RoleAdmin, models.RoleServiceManager)
}

// Close allows the assignee, otherwise requires admin or service_manager.
func (p TicketPolicy) Close(u *models.User, t *models.Ticket) *Denial {
	if d := p.canAccess(u, t); d != nil {
		return d
	}
	if t.AssigneeID != nil && *t.AssigneeID == u.ID {
		return nil
	}
	return p.requireRole(u, "close tickets", models.RoleAdmin, models.RoleServiceManager)
}

// Reply allows the assigned agent and same-team agents even when the base
// team decision would deny them; the tenant boundary stays absolute.
func (p TicketPolicy) Reply(u *models.User, t *models.Ticket) *Denial {
	if u == nil {
		return denyUnauthenticated
	}
	tenant, _ := tenancy.PrincipalTenant(u)
	if tenant != t.TenantID {
		return denyScope
	}
	if t.AssigneeID != nil && *t.AssigneeID == u.ID {
		return nil
	}
	if u.HasRole(models.RoleAgent) && t.TeamID != nil && u.TeamID != nil && *u.TeamID == *t.TeamID {
		return nil
	}
	return p.canAccess(u, t)
}

// Delete additionally requires the admin or service_manager role.
func (p TicketPolicy) Delete(u *models.User, t *models.Ticket) *Denial {
	if d := p.canAccess(u, t); d != nil {
		return d
	}
	return p.requireRole(u, "delete tickets", models.RoleAdmin, models.RoleServiceManager)
}

// Attach gates attachment upload/download URLs on the base decision.
func (p TicketPolicy) Attach(u *models.User, t *models.Ticket) *Denial {
	return p.canAccess(u, t)
}
