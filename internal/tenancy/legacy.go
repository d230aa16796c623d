package tenancy

import "github.com/nimbus-crm/backend/internal/models"

const (
	// LegacySentinel is the historical tenant_id value meaning "unresolved".
	// Principals still carrying it route through the organization-name map.
	LegacySentinel int64 = 0

	// DefaultTenant is the public/anonymous access tenant.
	DefaultTenant int64 = 1
)

// legacyOrgTenants maps pre-migration organization names to tenant ids. This
// is compatibility debt: once every user row has a real tenant_id the map can
// be retired. Do not add entries.
var legacyOrgTenants = map[string]int64{
	"Globex LLC": 4,
}

func legacyTenant(organizationName string) int64 {
	if id, ok := legacyOrgTenants[organizationName]; ok {
		return id
	}
	return DefaultTenant
}

// PrincipalTenant derives a tenant id from the principal alone: the user's
// tenant_id, their own id when tenant_id is unset (tenant-owner convention),
// or the legacy organization-name mapping when the sentinel 0 is stored.
// The second return is true when the legacy fallback fired; callers should
// log it as a sign of incomplete data migration.
func PrincipalTenant(p *models.User) (int64, bool) {
	if p == nil {
		return DefaultTenant, false
	}
	if p.TenantID == nil {
		return p.ID, false
	}
	if *p.TenantID == LegacySentinel {
		return legacyTenant(p.OrganizationName), true
	}
	return *p.TenantID, false
}
