package analytics

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/pkg/response"
)

// Handler handles analytics HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Summary handles GET /reports/summary for the caller's tenant.
func (h *Handler) Summary(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	s, err := h.repo.Summarize(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("tenant summary", zap.Error(err), zap.Int64("tenant_id", scope.ReadTenant()))
		response.Internal(c, "failed to compute summary")
		return
	}
	response.OK(c, s)
}

// TenantReports handles GET /reports/tenants. Routed behind the admin role;
// the query intentionally spans all tenants.
func (h *Handler) TenantReports(c *gin.Context) {
	reports, err := h.repo.TenantReports(c.Request.Context())
	if err != nil {
		h.logger.Error("tenant reports", zap.Error(err))
		response.Internal(c, "failed to compute report")
		return
	}
	response.OK(c, reports)
}
