package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbus-crm/backend/internal/models"
)

func i64(v int64) *int64 { return &v }

func TestResolvePrecedence(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(9)}

	res := Resolve(Request{BodyTenantID: 3, QueryTenant: "5", Referer: "https://app.example.com/?tenant=6"}, p)
	assert.Equal(t, int64(3), res.TenantID)
	assert.Equal(t, SourceBody, res.Source)

	res = Resolve(Request{QueryTenant: "5", Referer: "https://app.example.com/?tenant=6"}, p)
	assert.Equal(t, int64(5), res.TenantID)
	assert.Equal(t, SourceQuery, res.Source)

	res = Resolve(Request{Referer: "https://app.example.com/?tenant=6"}, p)
	assert.Equal(t, int64(6), res.TenantID)
	assert.Equal(t, SourceReferer, res.Source)

	res = Resolve(Request{}, p)
	assert.Equal(t, int64(9), res.TenantID)
	assert.Equal(t, SourcePrincipal, res.Source)
}

func TestResolveIgnoresInvalidExplicitValues(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(9)}

	// Non-numeric and non-positive explicit values fall through.
	res := Resolve(Request{QueryTenant: "abc"}, p)
	assert.Equal(t, int64(9), res.TenantID)

	res = Resolve(Request{QueryTenant: "0"}, p)
	assert.Equal(t, int64(9), res.TenantID)

	res = Resolve(Request{Referer: "https://app.example.com/settings"}, p)
	assert.Equal(t, int64(9), res.TenantID)
}

func TestResolveTenantOwnerConvention(t *testing.T) {
	// tenant_id unset: the principal's own id is the tenant.
	p := &models.User{ID: 42}
	res := Resolve(Request{}, p)
	assert.Equal(t, int64(42), res.TenantID)
	assert.Equal(t, SourcePrincipal, res.Source)
}

func TestResolveLegacyFallback(t *testing.T) {
	p := &models.User{ID: 7, TenantID: i64(0), OrganizationName: "Globex LLC"}
	res := Resolve(Request{}, p)
	assert.Equal(t, int64(4), res.TenantID)
	assert.Equal(t, SourceLegacy, res.Source)
	assert.True(t, res.Legacy())

	p.OrganizationName = "Acme Co"
	res = Resolve(Request{}, p)
	assert.Equal(t, int64(1), res.TenantID)
	assert.Equal(t, SourceLegacy, res.Source)
}

func TestResolveAnonymousDefault(t *testing.T) {
	res := Resolve(Request{}, nil)
	assert.Equal(t, DefaultTenant, res.TenantID)
	assert.Equal(t, SourceDefault, res.Source)
	assert.False(t, res.Legacy())
}

func TestPrincipalTenant(t *testing.T) {
	id, legacy := PrincipalTenant(&models.User{ID: 3, TenantID: i64(8)})
	assert.Equal(t, int64(8), id)
	assert.False(t, legacy)

	id, legacy = PrincipalTenant(&models.User{ID: 3})
	assert.Equal(t, int64(3), id)
	assert.False(t, legacy)

	id, legacy = PrincipalTenant(&models.User{ID: 3, TenantID: i64(0), OrganizationName: "Globex LLC"})
	assert.Equal(t, int64(4), id)
	assert.True(t, legacy)
}
