package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-crm/backend/internal/models"
)

type fixedAssigner struct {
	team   *int64
	calls  int
	tenant int64
}

func (a *fixedAssigner) NextTeam(_ context.Context, tenantID int64) (*int64, error) {
	a.calls++
	a.tenant = tenantID
	return a.team, nil
}

func TestScopeAndAppendsTenantPredicate(t *testing.T) {
	s := NewScope(Flags{}, &models.User{ID: 1, TenantID: i64(5)}, Resolution{TenantID: 5, Source: SourcePrincipal})

	clause, args := s.And("id = $1", []any{int64(9)})
	assert.Equal(t, "id = $1 AND tenant_id = $2", clause)
	assert.Equal(t, []any{int64(9), int64(5)}, args)

	clause, args = s.And("", nil)
	assert.Equal(t, "tenant_id = $1", clause)
	assert.Equal(t, []any{int64(5)}, args)
}

func TestScopeAndIgnoresRequestSuppliedTenant(t *testing.T) {
	// A caller cannot widen reads to another tenant by naming it in the
	// request; only create-time stamping follows the resolution.
	p := &models.User{ID: 1, TenantID: i64(9)}
	s := NewScope(Flags{}, p, Resolve(Request{QueryTenant: "5"}, p))
	require.Equal(t, int64(5), s.TenantID)
	require.Equal(t, int64(9), s.ReadTenant())

	clause, args := s.And("", nil)
	assert.Equal(t, "tenant_id = $1", clause)
	assert.Equal(t, []any{int64(9)}, args)
}

func TestScopeReadTenantOwnerConvention(t *testing.T) {
	// Tenant owners (tenant_id unset) read their own tenant, which is their id.
	p := &models.User{ID: 42}
	s := NewScope(Flags{}, p, Resolve(Request{QueryTenant: "5"}, p))
	assert.Equal(t, int64(42), s.ReadTenant())
}

func TestScopeAndSkippedForAnonymous(t *testing.T) {
	s := Anonymous(3)
	require.False(t, s.Authenticated())

	clause, args := s.And("id = $1", []any{int64(9)})
	assert.Equal(t, "id = $1", clause)
	assert.Equal(t, []any{int64(9)}, args)
}

func TestStampNewSetsOwnerAndTenant(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(5)}
	s := NewScope(Flags{}, p, Resolution{TenantID: 5, Source: SourcePrincipal})

	c := &models.Contact{}
	require.NoError(t, s.StampNew(context.Background(), nil, c))
	assert.Equal(t, int64(5), c.TenantID)
	if assert.NotNil(t, c.OwnerID) {
		assert.Equal(t, int64(7), *c.OwnerID)
	}
}

func TestStampNewIsIdempotent(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(5)}
	s := NewScope(Flags{}, p, Resolution{TenantID: 5, Source: SourcePrincipal})

	c := &models.Contact{}
	c.TenantID = 2
	c.OwnerID = i64(11)
	require.NoError(t, s.StampNew(context.Background(), nil, c))
	assert.Equal(t, int64(2), c.TenantID)
	assert.Equal(t, int64(11), *c.OwnerID)
}

func TestStampNewLegacyTeamCopy(t *testing.T) {
	// Team access off: the principal's team is copied directly.
	p := &models.User{ID: 7, TenantID: i64(5), TeamID: i64(3)}
	s := NewScope(Flags{TeamAccess: false}, p, Resolution{TenantID: 5, Source: SourcePrincipal})

	c := &models.Contact{}
	require.NoError(t, s.StampNew(context.Background(), nil, c))
	if assert.NotNil(t, c.TeamID) {
		assert.Equal(t, int64(3), *c.TeamID)
	}
}

func TestStampNewDelegatesToAssigner(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(5), TeamID: i64(3)}
	s := NewScope(Flags{TeamAccess: true}, p, Resolution{TenantID: 5, Source: SourcePrincipal})

	a := &fixedAssigner{team: i64(8)}
	c := &models.Contact{}
	require.NoError(t, s.StampNew(context.Background(), a, c))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, int64(5), a.tenant)
	if assert.NotNil(t, c.TeamID) {
		assert.Equal(t, int64(8), *c.TeamID)
	}
}

func TestStampNewAssignerMayReturnNoTeam(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(5)}
	s := NewScope(Flags{TeamAccess: true}, p, Resolution{TenantID: 5, Source: SourcePrincipal})

	a := &fixedAssigner{}
	c := &models.Contact{}
	require.NoError(t, s.StampNew(context.Background(), a, c))
	assert.Nil(t, c.TeamID)
}

func TestStampNewEntityWithoutOwner(t *testing.T) {
	// Articles recognize tenant/team but not owner; stamping must not panic
	// and must leave tenant set.
	p := &models.User{ID: 7, TenantID: i64(5)}
	s := NewScope(Flags{}, p, Resolution{TenantID: 5, Source: SourcePrincipal})

	a := &models.Article{}
	require.NoError(t, s.StampNew(context.Background(), nil, a))
	assert.Equal(t, int64(5), a.TenantID)
}
