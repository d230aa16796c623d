package tenancy

import "github.com/nimbus-crm/backend/internal/models"

// Flags holds the feature configuration the access rules depend on. It is
// passed by value everywhere so tests can exercise both states without
// touching globals.
type Flags struct {
	TeamAccess bool
}

// Entity is any record carrying tenant/team scope columns
// (models.Tenancy satisfies it).
type Entity interface {
	ScopeTenantID() int64
	ScopeTeamID() *int64
}

// Decide is the base access decision applied identically for view, update,
// delete and restore across entity types:
//
//  1. tenant mismatch denies unconditionally;
//  2. with team access disabled, tenant match alone allows;
//  3. with team access enabled, ungrouped records stay visible tenant-wide,
//     admins bypass the team boundary (never the tenant boundary), and
//     everyone else needs team equality.
//
// Action-specific role gates are layered on top by the policy package.
func Decide(flags Flags, p *models.User, e Entity) bool {
	if p == nil || e == nil {
		return false
	}
	tenant, _ := PrincipalTenant(p)
	if tenant != e.ScopeTenantID() {
		return false
	}
	if !flags.TeamAccess {
		return true
	}
	team := e.ScopeTeamID()
	if team == nil {
		return true
	}
	if p.IsAdmin() {
		return true
	}
	return p.TeamID != nil && *p.TeamID == *team
}
