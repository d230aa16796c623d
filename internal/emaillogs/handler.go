package emaillogs

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func validStatus(s string) bool {
	return s == models.EmailStatusQueued || s == models.EmailStatusSent || s == models.EmailStatusFailed
}

// List handles GET /email-logs. Accepts an optional ?status= filter.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	status := c.Query("status")
	if status != "" && !validStatus(status) {
		response.BadRequest(c, "unknown status: "+status)
		return
	}
	list, err := h.repo.List(c.Request.Context(), scope, status)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, list)
}
