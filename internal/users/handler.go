// Package users exposes member management inside a tenant: admins invite
// members, move them between teams and soft-deactivate them.
package users

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/auth"
	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/teams"
	"github.com/nimbus-crm/backend/pkg/response"
	"github.com/nimbus-crm/backend/pkg/utils"
)

// Handler handles member management HTTP endpoints.
type Handler struct {
	users  *auth.Repository
	teams  *teams.Repository
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(users *auth.Repository, teams *teams.Repository, logger *zap.Logger) *Handler {
	return &Handler{users: users, teams: teams, logger: logger}
}

// CreateMemberRequest is the body for POST /users.
type CreateMemberRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"`
	TeamID   *int64 `json:"team_id"`
}

// AssignTeamRequest is the body for PATCH /users/:id/team.
type AssignTeamRequest struct {
	TeamID *int64 `json:"team_id"`
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Unauthorized(c, "authentication required")
		return
	}
	response.OK(c, principal.ToPublic())
}

// List handles GET /users. Members of the caller's tenant only.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	list, err := h.users.ListByTenant(c.Request.Context(), scope.ReadTenant())
	if err != nil {
		response.Internal(c, "failed to load users")
		return
	}
	response.OK(c, list)
}

// CreateMember handles POST /users. Admin only; the new user lands in the
// caller's tenant regardless of any explicit tenant in the request.
func (h *Handler) CreateMember(c *gin.Context) {
	scope := middleware.ScopeFrom(c)

	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.RoleMember
	if req.Role != "" {
		if !models.ValidRole(req.Role) {
			response.BadRequest(c, "invalid role")
			return
		}
		role = models.Role(req.Role)
	}

	// Members always join the caller's tenant, never an explicit one.
	tenantID := scope.ReadTenant()
	if req.TeamID != nil {
		team, err := h.teams.GetByID(c.Request.Context(), tenantID, *req.TeamID)
		if err != nil {
			response.Internal(c, "failed to check team")
			return
		}
		if team == nil {
			response.BadRequest(c, "team does not belong to this tenant")
			return
		}
	}

	existing, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to check email")
		return
	}
	if existing != nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.users.CreateMember(c.Request.Context(), tenantID, req.Email, hash, req.FullName, role, req.TeamID)
	if err != nil {
		h.logger.Error("create member", zap.Error(err), zap.Int64("tenant_id", tenantID))
		response.Internal(c, "failed to create user")
		return
	}
	response.Created(c, user.ToPublic())
}

// AssignTeam handles PATCH /users/:id/team. Admin only; re-validates that the
// target team belongs to the caller's tenant.
func (h *Handler) AssignTeam(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req AssignTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.TeamID != nil {
		team, terr := h.teams.GetByID(c.Request.Context(), scope.ReadTenant(), *req.TeamID)
		if terr != nil {
			response.Internal(c, "failed to check team")
			return
		}
		if team == nil {
			response.BadRequest(c, "team does not belong to this tenant")
			return
		}
	}
	if err := h.users.UpdateTeam(c.Request.Context(), scope.ReadTenant(), userID, req.TeamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "user not found")
			return
		}
		response.Internal(c, "failed to update team")
		return
	}
	response.NoContent(c)
}

// Deactivate handles DELETE /users/:id. Admin only; soft-deactivation.
func (h *Handler) Deactivate(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), scope.ReadTenant(), userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "user not found")
			return
		}
		response.Internal(c, "failed to deactivate user")
		return
	}
	response.NoContent(c)
}
