package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/tenancy"
)

const (
	// ContextScope is the key for the request's tenancy.Scope in gin context.
	ContextScope = "scope"
	// ContextTenantID is the key for the resolved tenant id in gin context.
	ContextTenantID = "tenant_id"
)

// bodyTenant is the only body field the resolver peeks at.
type bodyTenant struct {
	TenantID int64 `json:"tenant_id"`
}

// TenantScope returns the middleware that resolves the request's tenant and
// builds the tenancy scope every repository call runs under. Must run after
// Principal on authenticated routes; on public routes it runs standalone and
// produces an anonymous scope from the explicit tenant parameters.
func TenantScope(flags tenancy.Flags, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := tenancy.Request{
			BodyTenantID: peekBodyTenantID(c),
			QueryTenant:  c.Query("tenant"),
			Referer:      c.GetHeader("Referer"),
		}
		principal := PrincipalFrom(c)
		res := tenancy.Resolve(req, principal)
		if res.Legacy() {
			// Principals still on the sentinel need a tenant backfill.
			logger.Warn("tenant resolved via legacy organization-name fallback",
				zap.Int64("user_id", principal.ID),
				zap.String("organization_name", principal.OrganizationName),
				zap.Int64("tenant_id", res.TenantID),
			)
		}

		var scope tenancy.Scope
		if principal != nil {
			scope = tenancy.NewScope(flags, principal, res)
		} else {
			scope = tenancy.Anonymous(res.TenantID)
		}
		c.Set(ContextTenantID, res.TenantID)
		c.Set(ContextScope, scope)
		c.Next()
	}
}

// peekBodyTenantID reads an explicit tenant_id from a JSON body without
// consuming it for the handler's own binding.
func peekBodyTenantID(c *gin.Context) int64 {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return 0
	}
	switch c.Request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return 0
	}
	if !strings.Contains(c.ContentType(), "application/json") {
		return 0
	}
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return 0
	}
	var body bodyTenant
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0
	}
	return body.TenantID
}

// ScopeFrom returns the request's tenancy scope. Routes without the
// TenantScope middleware get a zero-value anonymous scope.
func ScopeFrom(c *gin.Context) tenancy.Scope {
	if v, ok := c.Get(ContextScope); ok {
		if s, ok := v.(tenancy.Scope); ok {
			return s
		}
	}
	return tenancy.Scope{}
}

// TenantIDFrom returns the resolved tenant id for the request.
func TenantIDFrom(c *gin.Context) int64 {
	if v, ok := c.Get(ContextTenantID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return tenancy.DefaultTenant
}
