package teams

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/pkg/response"
)

// Handler handles team HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a teams handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateTeamRequest is the body for POST /teams.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// List handles GET /teams. Teams of the caller's tenant.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	list, err := h.repo.ListByTenant(c.Request.Context(), scope.ReadTenant())
	if err != nil {
		response.Internal(c, "failed to load teams")
		return
	}
	response.OK(c, list)
}

// Create handles POST /teams. Admin only.
func (h *Handler) Create(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 120 {
		response.BadRequest(c, "name must be 1-120 characters")
		return
	}
	team := &models.Team{TenantID: scope.ReadTenant(), Name: name}
	if err := h.repo.Create(c.Request.Context(), team); err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique") {
			response.Conflict(c, "a team with this name already exists")
			return
		}
		response.Internal(c, "failed to create team")
		return
	}
	response.Created(c, team)
}

// Delete handles DELETE /teams/:id. Admin only.
func (h *Handler) Delete(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), scope.ReadTenant(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "team not found")
			return
		}
		response.Internal(c, "failed to delete team")
		return
	}
	response.NoContent(c)
}
