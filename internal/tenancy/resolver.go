package tenancy

import (
	"regexp"
	"strconv"

	"github.com/nimbus-crm/backend/internal/models"
)

// Request carries the pieces of an inbound HTTP request the resolver inspects.
type Request struct {
	BodyTenantID int64  // tenant_id field from the JSON body; 0 when absent
	QueryTenant  string // raw "tenant" query parameter
	Referer      string // Referer header
}

// Source identifies which rule of the resolution chain produced the tenant.
type Source string

const (
	SourceBody      Source = "body"
	SourceQuery     Source = "query"
	SourceReferer   Source = "referer"
	SourcePrincipal Source = "principal"
	SourceLegacy    Source = "legacy"
	SourceDefault   Source = "default"
)

// Resolution is the resolver's result. TenantID is always a positive integer.
type Resolution struct {
	TenantID int64
	Source   Source
}

// Legacy reports whether the organization-name fallback produced the tenant.
func (r Resolution) Legacy() bool { return r.Source == SourceLegacy }

var refererTenantRe = regexp.MustCompile(`tenant=(\d+)`)

// Resolve produces exactly one tenant id for a request, never zero. First
// match wins: explicit body tenant_id, the tenant query parameter, a
// tenant=<digits> pattern in the Referer, then the principal (with the legacy
// organization-name fallback for the sentinel 0), and finally the default
// tenant for anonymous requests. Pure function; it never fails.
func Resolve(req Request, p *models.User) Resolution {
	if req.BodyTenantID > 0 {
		return Resolution{TenantID: req.BodyTenantID, Source: SourceBody}
	}
	if req.QueryTenant != "" {
		if id, err := strconv.ParseInt(req.QueryTenant, 10, 64); err == nil && id > 0 {
			return Resolution{TenantID: id, Source: SourceQuery}
		}
	}
	if req.Referer != "" {
		if m := refererTenantRe.FindStringSubmatch(req.Referer); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > 0 {
				return Resolution{TenantID: id, Source: SourceReferer}
			}
		}
	}
	if p == nil {
		return Resolution{TenantID: DefaultTenant, Source: SourceDefault}
	}
	id, legacy := PrincipalTenant(p)
	if legacy {
		return Resolution{TenantID: id, Source: SourceLegacy}
	}
	return Resolution{TenantID: id, Source: SourcePrincipal}
}
