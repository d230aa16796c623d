package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbus-crm/backend/internal/models"
)

func scoped(tenant int64, team *int64) *models.Contact {
	c := &models.Contact{}
	c.TenantID = tenant
	c.TeamID = team
	return c
}

func TestDecideTenantBoundaryIsAbsolute(t *testing.T) {
	p := &models.User{ID: 1, TenantID: i64(5), Role: models.RoleAdmin}
	e := scoped(6, nil)

	// Even admins never cross the tenant boundary.
	assert.False(t, Decide(Flags{TeamAccess: false}, p, e))
	assert.False(t, Decide(Flags{TeamAccess: true}, p, e))
}

func TestDecideTeamAccessDisabled(t *testing.T) {
	flags := Flags{TeamAccess: false}
	p := &models.User{ID: 1, TenantID: i64(5), TeamID: i64(3)}

	// Tenant equality alone decides, team values are cosmetic.
	assert.True(t, Decide(flags, p, scoped(5, i64(2))))
	assert.True(t, Decide(flags, p, scoped(5, nil)))
	assert.False(t, Decide(flags, p, scoped(7, i64(3))))
}

func TestDecideTeamAccessEnabled(t *testing.T) {
	flags := Flags{TeamAccess: true}

	// Ungrouped records stay visible tenant-wide.
	p := &models.User{ID: 1, TenantID: i64(5), TeamID: i64(3)}
	assert.True(t, Decide(flags, p, scoped(5, nil)))

	// Team mismatch denies for non-admins.
	assert.False(t, Decide(flags, p, scoped(5, i64(2))))

	// Team match allows.
	assert.True(t, Decide(flags, p, scoped(5, i64(3))))

	// A principal with no team cannot see grouped records.
	noTeam := &models.User{ID: 2, TenantID: i64(5)}
	assert.False(t, Decide(flags, noTeam, scoped(5, i64(3))))
}

func TestDecideAdminOverridesTeamNotTenant(t *testing.T) {
	flags := Flags{TeamAccess: true}
	admin := &models.User{ID: 1, TenantID: i64(5), TeamID: i64(3), Role: models.RoleAdmin}

	assert.True(t, Decide(flags, admin, scoped(5, i64(2))))
	assert.False(t, Decide(flags, admin, scoped(6, i64(3))))
}

func TestDecideConcreteScenario(t *testing.T) {
	flags := Flags{TeamAccess: true}
	e := scoped(5, i64(2))

	p := &models.User{ID: 1, TenantID: i64(5), TeamID: i64(3)}
	assert.False(t, Decide(flags, p, e))

	p.Role = models.RoleAdmin
	assert.True(t, Decide(flags, p, e))
}

func TestDecideNilInputs(t *testing.T) {
	assert.False(t, Decide(Flags{}, nil, scoped(1, nil)))
	assert.False(t, Decide(Flags{}, &models.User{ID: 1}, nil))
}

func TestResolveTeam(t *testing.T) {
	p := &models.User{ID: 1, TeamID: i64(4)}

	assert.Nil(t, ResolveTeam(Flags{TeamAccess: false}, p))
	if got := ResolveTeam(Flags{TeamAccess: true}, p); assert.NotNil(t, got) {
		assert.Equal(t, int64(4), *got)
	}
	assert.Nil(t, ResolveTeam(Flags{TeamAccess: true}, &models.User{ID: 2}))
	assert.Nil(t, ResolveTeam(Flags{TeamAccess: true}, nil))
}
