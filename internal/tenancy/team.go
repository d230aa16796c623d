package tenancy

import "github.com/nimbus-crm/backend/internal/models"

// ResolveTeam returns the principal's team only when team access is enabled;
// otherwise team filtering is inert and it returns nil.
func ResolveTeam(flags Flags, p *models.User) *int64 {
	if !flags.TeamAccess || p == nil || p.TeamID == nil {
		return nil
	}
	id := *p.TeamID
	return &id
}
