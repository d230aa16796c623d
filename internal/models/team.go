package models

import "time"

// Team is an optional sub-grouping within a tenant. Teams only affect
// visibility when the team-access feature flag is enabled.
type Team struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
