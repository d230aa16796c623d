// Package policy layers entity-specific role gates on top of the base
// tenant/team access decision. Both checks must pass; a nil return means
// the action is allowed.
package policy

import (
	"strings"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

// Denial codes surfaced to the HTTP layer alongside a 403.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeScopeDenied     = "scope_denied"
	CodeRoleDenied      = "role_denied"
)

// Denial explains a refused action. It satisfies error and carries a
// machine-readable code.
type Denial struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (d *Denial) Error() string { return d.Reason }

var (
	denyUnauthenticated = &Denial{Code: CodeUnauthenticated, Reason: "authentication required"}
	denyScope           = &Denial{Code: CodeScopeDenied, Reason: "you do not have access to this record"}
)

func denyRole(action string, roles ...models.Role) *Denial {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return &Denial{
		Code:   CodeRoleDenied,
		Reason: "only " + strings.Join(names, " or ") + " may " + action,
	}
}

// Base wraps the access decision shared by every entity policy.
type Base struct {
	Flags tenancy.Flags
}

func (b Base) canAccess(u *models.User, e tenancy.Entity) *Denial {
	if u == nil {
		return denyUnauthenticated
	}
	if !tenancy.Decide(b.Flags, u, e) {
		return denyScope
	}
	return nil
}

func (b Base) requireRole(u *models.User, action string, roles ...models.Role) *Denial {
	if !u.HasRole(roles...) {
		return denyRole(action, roles...)
	}
	return nil
}
