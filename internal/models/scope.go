package models

// Tenancy carries the scope columns shared by every business record. TenantID
// is required and immutable after creation; TeamID is optional and only
// enforced when team access is enabled.
type Tenancy struct {
	TenantID int64  `json:"tenant_id"`
	TeamID   *int64 `json:"team_id,omitempty"`
}

// ScopeTenantID returns the record's tenant.
func (t *Tenancy) ScopeTenantID() int64 { return t.TenantID }

// SetScopeTenantID sets the record's tenant. Used only by create-time stamping.
func (t *Tenancy) SetScopeTenantID(id int64) { t.TenantID = id }

// ScopeTeamID returns the record's team, or nil when ungrouped.
func (t *Tenancy) ScopeTeamID() *int64 { return t.TeamID }

// SetScopeTeamID sets the record's team.
func (t *Tenancy) SetScopeTeamID(id int64) { t.TeamID = &id }

// Ownership carries the optional owning-principal column. Entities without an
// owner concept simply do not embed it.
type Ownership struct {
	OwnerID *int64 `json:"owner_id,omitempty"`
}

// ScopeOwnerID returns the owning principal, or nil when unset.
func (o *Ownership) ScopeOwnerID() *int64 { return o.OwnerID }

// SetScopeOwnerID sets the owning principal.
func (o *Ownership) SetScopeOwnerID(id int64) { o.OwnerID = &id }
