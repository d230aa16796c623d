package deals

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/policy"
	"github.com/nimbus-crm/backend/internal/tenancy"
	"github.com/nimbus-crm/backend/pkg/response"
)

// Publisher broadcasts tenant-scoped activity events.
type Publisher interface {
	Publish(tenantID int64, event string, data interface{})
}

// Handler handles deal HTTP endpoints.
type Handler struct {
	repo     *Repository
	policy   policy.DealPolicy
	assigner tenancy.TeamAssigner
	events   Publisher
	logger   *zap.Logger
}

// NewHandler creates a deals handler. events may be nil.
func NewHandler(repo *Repository, pol policy.DealPolicy, assigner tenancy.TeamAssigner, events Publisher, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, policy: pol, assigner: assigner, events: events, logger: logger}
}

// DealRequest is the body for POST/PUT deal endpoints.
type DealRequest struct {
	Title       string `json:"title" binding:"required"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Stage       string `json:"stage"`
	ContactID   *int64 `json:"contact_id"`
}

// StageRequest is the body for PATCH /deals/:id/stage.
type StageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// List handles GET /deals. Accepts an optional ?stage= filter.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	stage := c.Query("stage")
	if stage != "" && !models.ValidDealStage(stage) {
		response.BadRequest(c, "unknown stage: "+stage)
		return
	}
	list, err := h.repo.List(c.Request.Context(), scope, stage)
	if err != nil {
		response.Internal(c, "failed to load deals")
		return
	}
	response.OK(c, list)
}

// Create handles POST /deals.
func (h *Handler) Create(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	var req DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	stage := models.DealStageLead
	if req.Stage != "" {
		if !models.ValidDealStage(req.Stage) {
			response.BadRequest(c, "unknown stage: "+req.Stage)
			return
		}
		stage = models.DealStage(req.Stage)
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	deal := &models.Deal{
		Title:       strings.TrimSpace(req.Title),
		AmountCents: req.AmountCents,
		Currency:    currency,
		Stage:       stage,
		ContactID:   req.ContactID,
	}
	if err := scope.StampNew(c.Request.Context(), h.assigner, deal); err != nil {
		h.logger.Error("stamp deal", zap.Error(err))
		response.Internal(c, "failed to create deal")
		return
	}
	if err := h.repo.Create(c.Request.Context(), deal); err != nil {
		response.Internal(c, "failed to create deal")
		return
	}
	h.publish(deal.TenantID, "deal.created", deal)
	response.Created(c, deal)
}

// GetByID handles GET /deals/:id. A cross-tenant id reads as not found.
func (h *Handler) GetByID(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	deal, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), deal); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	response.OK(c, deal)
}

// Update handles PUT /deals/:id.
func (h *Handler) Update(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	deal, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Update(middleware.PrincipalFrom(c), deal); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Stage != "" {
		if !models.ValidDealStage(req.Stage) {
			response.BadRequest(c, "unknown stage: "+req.Stage)
			return
		}
		deal.Stage = models.DealStage(req.Stage)
	}
	deal.Title = strings.TrimSpace(req.Title)
	deal.AmountCents = req.AmountCents
	if req.Currency != "" {
		deal.Currency = strings.ToUpper(req.Currency)
	}
	deal.ContactID = req.ContactID
	if err := h.repo.Update(c.Request.Context(), scope, deal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "deal not found")
			return
		}
		response.Internal(c, "failed to update deal")
		return
	}
	response.OK(c, deal)
}

// UpdateStage handles PATCH /deals/:id/stage.
func (h *Handler) UpdateStage(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	deal, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.UpdateStage(middleware.PrincipalFrom(c), deal); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidDealStage(req.Stage) {
		response.BadRequest(c, "unknown stage: "+req.Stage)
		return
	}
	stage := models.DealStage(req.Stage)
	if err := h.repo.UpdateStage(c.Request.Context(), scope, deal.ID, stage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "deal not found")
			return
		}
		response.Internal(c, "failed to update deal stage")
		return
	}
	deal.Stage = stage
	h.publish(deal.TenantID, "deal.stage_changed", gin.H{
		"deal_id": deal.ID,
		"title":   deal.Title,
		"stage":   stage,
	})
	response.OK(c, deal)
}

// Delete handles DELETE /deals/:id.
func (h *Handler) Delete(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	deal, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Delete(middleware.PrincipalFrom(c), deal); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.Delete(c.Request.Context(), scope, deal.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "deal not found")
			return
		}
		response.Internal(c, "failed to delete deal")
		return
	}
	response.NoContent(c)
}

func (h *Handler) publish(tenantID int64, event string, data interface{}) {
	if h.events != nil {
		h.events.Publish(tenantID, event, data)
	}
}

// load fetches the deal under the scope, writing the error response and
// returning ok=false when it cannot.
func (h *Handler) load(c *gin.Context, scope tenancy.Scope) (*models.Deal, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid deal id")
		return nil, false
	}
	deal, err := h.repo.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		response.Internal(c, "failed to load deal")
		return nil, false
	}
	if deal == nil {
		response.NotFound(c, "deal not found")
		return nil, false
	}
	return deal, true
}
