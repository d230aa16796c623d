package tenancy

import (
	"context"
	"fmt"

	"github.com/nimbus-crm/backend/internal/models"
)

// Scope is the per-request tenant/team context. Every repository method takes
// one, which keeps the tenant filter visible at the call site instead of being
// injected by ORM hooks.
//
// TenantID is the resolver's output: it is what create-time stamping applies
// and what anonymous public reads constrain themselves to. The read filter
// never trusts it for authenticated requests; And binds the principal's own
// tenant, so request parameters cannot widen what a caller can see.
type Scope struct {
	Principal *models.User
	TenantID  int64
	TeamID    *int64
	Flags     Flags
}

// NewScope builds the scope for an authenticated (or anonymous) request from
// the resolver's output.
func NewScope(flags Flags, p *models.User, res Resolution) Scope {
	return Scope{
		Principal: p,
		TenantID:  res.TenantID,
		TeamID:    ResolveTeam(flags, p),
		Flags:     flags,
	}
}

// Anonymous returns an unauthenticated scope carrying an explicit tenant.
// No implicit read filter applies; public endpoints must constrain their own
// queries (typically via TenantID).
func Anonymous(tenantID int64) Scope {
	return Scope{TenantID: tenantID}
}

// Authenticated reports whether a principal is attached to the scope.
func (s Scope) Authenticated() bool { return s.Principal != nil }

// ReadTenant returns the tenant reads are confined to: the principal's own
// tenant when authenticated, the explicitly resolved tenant otherwise.
func (s Scope) ReadTenant() int64 {
	if s.Authenticated() {
		tenant, _ := PrincipalTenant(s.Principal)
		return tenant
	}
	return s.TenantID
}

// And appends the tenant predicate to a WHERE clause, numbering the new
// placeholder after the existing args. The predicate binds the principal's
// tenant, never a request-supplied one. For anonymous scopes the clause is
// returned unchanged: unauthenticated access is deliberately unfiltered here
// and public endpoints scope themselves explicitly.
func (s Scope) And(clause string, args []any) (string, []any) {
	if !s.Authenticated() {
		return clause, args
	}
	pred := fmt.Sprintf("tenant_id = $%d", len(args)+1)
	args = append(args, s.ReadTenant())
	if clause == "" {
		return pred, args
	}
	return clause + " AND " + pred, args
}

// TenantScoped is a record whose tenant can be stamped at creation.
type TenantScoped interface {
	ScopeTenantID() int64
	SetScopeTenantID(int64)
}

// TeamScoped is a record that recognizes a team_id attribute.
type TeamScoped interface {
	ScopeTeamID() *int64
	SetScopeTeamID(int64)
}

// Owned is a record that recognizes an owner_id attribute.
type Owned interface {
	ScopeOwnerID() *int64
	SetScopeOwnerID(int64)
}

// TeamAssigner picks a team for a newly created record when team access is
// enabled (round-robin in production).
type TeamAssigner interface {
	NextTeam(ctx context.Context, tenantID int64) (*int64, error)
}

// StampNew applies the write-side scope rules to a record being created:
// owner_id gets the creating principal when recognized and empty, tenant_id
// gets the resolved tenant when empty, and team_id is either delegated to the
// assigner (team access on) or copied from the principal (legacy path, team
// access off). Already-set fields are left alone, so stamping is idempotent.
func (s Scope) StampNew(ctx context.Context, assigner TeamAssigner, e TenantScoped) error {
	if o, ok := e.(Owned); ok && o.ScopeOwnerID() == nil && s.Principal != nil {
		o.SetScopeOwnerID(s.Principal.ID)
	}
	if e.ScopeTenantID() == 0 {
		e.SetScopeTenantID(s.TenantID)
	}
	t, ok := e.(TeamScoped)
	if !ok || t.ScopeTeamID() != nil {
		return nil
	}
	if s.Flags.TeamAccess {
		if assigner == nil {
			return nil
		}
		team, err := assigner.NextTeam(ctx, e.ScopeTenantID())
		if err != nil {
			return fmt.Errorf("assign team: %w", err)
		}
		if team != nil {
			t.SetScopeTeamID(*team)
		}
		return nil
	}
	if s.Principal != nil && s.Principal.TeamID != nil {
		t.SetScopeTeamID(*s.Principal.TeamID)
	}
	return nil
}
