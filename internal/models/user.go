package models

import (
	"time"
)

// Role represents a user's role in the platform.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleManager        Role = "manager"
	RoleServiceManager Role = "service_manager"
	RoleAgent          Role = "agent"
	RoleMember         Role = "member"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleServiceManager, RoleAgent, RoleMember:
		return true
	}
	return false
}

// User is the authenticated principal. TenantID is nullable: nil means the
// user is a tenant owner (their tenant is their own id), while 0 is the legacy
// "unresolved" sentinel that routes through the organization-name fallback.
type User struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	Password         string     `json:"-"`
	FullName         string     `json:"full_name"`
	Role             Role       `json:"role"`
	TenantID         *int64     `json:"tenant_id,omitempty"`
	TeamID           *int64     `json:"team_id,omitempty"`
	OrganizationName string     `json:"organization_name,omitempty"`
	DeactivatedAt    *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasRole reports whether the user's role is one of the given roles.
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Active reports whether the user can authenticate. Users are never deleted,
// only soft-deactivated.
func (u *User) Active() bool { return u.DeactivatedAt == nil }

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	TenantID  *int64    `json:"tenant_id,omitempty"`
	TeamID    *int64    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		TenantID:  u.TenantID,
		TeamID:    u.TeamID,
		CreatedAt: u.CreatedAt,
	}
}
