package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

func scopeRouter(t *testing.T, flags tenancy.Flags, principal *models.User, capture *tenancy.Scope) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if principal != nil {
		r.Use(func(c *gin.Context) { c.Set(ContextPrincipal, principal) })
	}
	r.Use(TenantScope(flags, zap.NewNop()))
	handle := func(c *gin.Context) {
		*capture = ScopeFrom(c)
		c.Status(http.StatusOK)
	}
	r.GET("/resource", handle)
	r.POST("/resource", handle)
	return r
}

func TestTenantScopeBodyWinsOverEverything(t *testing.T) {
	var scope tenancy.Scope
	tid := int64(9)
	user := &models.User{ID: 3, TenantID: &tid}
	r := scopeRouter(t, tenancy.Flags{}, user, &scope)

	body := strings.NewReader(`{"tenant_id": 7, "name": "x"}`)
	req := httptest.NewRequest(http.MethodPost, "/resource?tenant=5", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://app.example.com/?tenant=6")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// The body tenant wins the resolution, so creates stamp tenant 7; reads
	// stay pinned to the principal's own tenant regardless.
	assert.Equal(t, int64(7), scope.TenantID)
	assert.Equal(t, int64(9), scope.ReadTenant())
}

func TestTenantScopeExplicitTenantCannotWidenReads(t *testing.T) {
	var scope tenancy.Scope
	tid := int64(9)
	user := &models.User{ID: 3, TenantID: &tid}
	r := scopeRouter(t, tenancy.Flags{}, user, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource?tenant=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	clause, args := scope.And("", nil)
	assert.Equal(t, "tenant_id = $1", clause)
	assert.Equal(t, []any{int64(9)}, args)
}

func TestTenantScopeBodyPeekPreservesBodyForBinding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TenantScope(tenancy.Flags{}, zap.NewNop()))
	var got struct {
		TenantID int64  `json:"tenant_id"`
		Name     string `json:"name"`
	}
	r.POST("/resource", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&got))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/resource", strings.NewReader(`{"tenant_id": 7, "name": "acme"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), got.TenantID)
	assert.Equal(t, "acme", got.Name)
}

func TestTenantScopeQueryBeatsReferer(t *testing.T) {
	var scope tenancy.Scope
	r := scopeRouter(t, tenancy.Flags{}, nil, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource?tenant=5", nil)
	req.Header.Set("Referer", "https://app.example.com/?tenant=6")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), scope.TenantID)
	assert.False(t, scope.Authenticated())
}

func TestTenantScopeRefererPattern(t *testing.T) {
	var scope tenancy.Scope
	r := scopeRouter(t, tenancy.Flags{}, nil, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Referer", "https://app.example.com/help?tenant=12&page=2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12), scope.TenantID)
}

func TestTenantScopePrincipalFallback(t *testing.T) {
	var scope tenancy.Scope
	tid := int64(4)
	team := int64(2)
	user := &models.User{ID: 8, TenantID: &tid, TeamID: &team, Role: models.RoleAgent}
	r := scopeRouter(t, tenancy.Flags{TeamAccess: true}, user, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), scope.TenantID)
	require.NotNil(t, scope.TeamID)
	assert.Equal(t, int64(2), *scope.TeamID)
	assert.True(t, scope.Authenticated())
}

func TestTenantScopeAnonymousDefault(t *testing.T) {
	var scope tenancy.Scope
	r := scopeRouter(t, tenancy.Flags{}, nil, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenancy.DefaultTenant, scope.TenantID)
	assert.False(t, scope.Authenticated())
}

func TestTenantScopeLegacySentinelRoutesThroughOrgName(t *testing.T) {
	var scope tenancy.Scope
	sentinel := int64(0)
	user := &models.User{ID: 11, TenantID: &sentinel, OrganizationName: "Globex LLC"}
	r := scopeRouter(t, tenancy.Flags{}, user, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), scope.TenantID)
}

func TestTenantScopeInvalidQueryIgnored(t *testing.T) {
	var scope tenancy.Scope
	r := scopeRouter(t, tenancy.Flags{}, nil, &scope)

	req := httptest.NewRequest(http.MethodGet, "/resource?tenant=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenancy.DefaultTenant, scope.TenantID)
}
