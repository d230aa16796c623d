package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/policy"
	"github.com/nimbus-crm/backend/internal/tenancy"
	"github.com/nimbus-crm/backend/pkg/queue"
	"github.com/nimbus-crm/backend/pkg/response"
)

// Publisher broadcasts tenant-scoped activity events.
type Publisher interface {
	Publish(tenantID int64, event string, data interface{})
}

// sendStore is the slice of the repository the send flow touches.
type sendStore interface {
	ResetDraft(ctx context.Context, scope tenancy.Scope, id int64) error
	MarkSent(ctx context.Context, scope tenancy.Scope, id int64) error
	RecipientEmails(ctx context.Context, tenantID int64) ([]string, error)
}

// dispatcher enqueues email jobs for the worker.
type dispatcher interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles campaign HTTP endpoints.
type Handler struct {
	repo     *Repository
	policy   policy.CampaignPolicy
	assigner tenancy.TeamAssigner
	queue    *queue.Queue
	events   Publisher
	logger   *zap.Logger
}

// NewHandler creates a campaigns handler. events may be nil.
func NewHandler(repo *Repository, pol policy.CampaignPolicy, assigner tenancy.TeamAssigner,
	q *queue.Queue, events Publisher, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, policy: pol, assigner: assigner, queue: q, events: events, logger: logger}
}

// CampaignRequest is the body for POST/PUT campaign endpoints.
type CampaignRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	BodyHTML string `json:"body_html"`
}

// List handles GET /campaigns.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	list, err := h.repo.List(c.Request.Context(), scope)
	if err != nil {
		response.Internal(c, "failed to load campaigns")
		return
	}
	response.OK(c, list)
}

// Create handles POST /campaigns. New campaigns start as drafts.
func (h *Handler) Create(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	campaign := &models.Campaign{
		Name:     strings.TrimSpace(req.Name),
		Subject:  strings.TrimSpace(req.Subject),
		BodyHTML: req.BodyHTML,
		Status:   models.CampaignStatusDraft,
	}
	if err := scope.StampNew(c.Request.Context(), h.assigner, campaign); err != nil {
		h.logger.Error("stamp campaign", zap.Error(err))
		response.Internal(c, "failed to create campaign")
		return
	}
	if err := h.repo.Create(c.Request.Context(), campaign); err != nil {
		response.Internal(c, "failed to create campaign")
		return
	}
	response.Created(c, campaign)
}

// GetByID handles GET /campaigns/:id. A cross-tenant id reads as not found.
func (h *Handler) GetByID(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	campaign, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), campaign); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	response.OK(c, campaign)
}

// Update handles PUT /campaigns/:id. Only drafts can change.
func (h *Handler) Update(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	campaign, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Update(middleware.PrincipalFrom(c), campaign); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if campaign.Status != models.CampaignStatusDraft {
		response.Conflict(c, "only draft campaigns can be edited")
		return
	}
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	campaign.Name = strings.TrimSpace(req.Name)
	campaign.Subject = strings.TrimSpace(req.Subject)
	campaign.BodyHTML = req.BodyHTML
	if err := h.repo.Update(c.Request.Context(), scope, campaign); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "campaign not found")
			return
		}
		response.Internal(c, "failed to update campaign")
		return
	}
	response.OK(c, campaign)
}

// Send handles POST /campaigns/:id/send. It enqueues one email job per
// tenant contact and marks the campaign sent.
func (h *Handler) Send(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	campaign, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Send(middleware.PrincipalFrom(c), campaign); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if h.queue == nil {
		response.Internal(c, "email queue is not configured")
		return
	}
	if err := h.repo.MarkSending(c.Request.Context(), scope, campaign.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Conflict(c, "campaign is not a draft")
			return
		}
		response.Internal(c, "failed to start campaign send")
		return
	}

	enqueued, err := dispatch(c.Request.Context(), h.repo, h.queue, h.events, scope, campaign, h.logger)
	if err != nil {
		h.logger.Error("campaign send", zap.Error(err), zap.Int64("campaign_id", campaign.ID))
		response.Internal(c, "failed to send campaign")
		return
	}
	h.logger.Info("campaign send enqueued",
		zap.Int64("campaign_id", campaign.ID),
		zap.Int64("tenant_id", campaign.TenantID),
		zap.Int("recipients", enqueued),
	)
	response.OK(c, gin.H{"campaign": campaign, "recipients": enqueued})
}

// dispatch enqueues one email per tenant recipient and finalizes the campaign
// status. A campaign that cannot complete returns to draft so the send can be
// retried instead of staying stuck in sending.
func dispatch(ctx context.Context, store sendStore, q dispatcher, events Publisher,
	scope tenancy.Scope, campaign *models.Campaign, logger *zap.Logger) (int, error) {
	emails, err := store.RecipientEmails(ctx, campaign.TenantID)
	if err != nil {
		rollbackDraft(ctx, store, scope, campaign.ID, logger)
		return 0, fmt.Errorf("load recipients: %w", err)
	}
	var enqueued int
	for _, email := range emails {
		err := q.EnqueueEmail(ctx, queue.EmailPayload{
			TenantID:       campaign.TenantID,
			CampaignID:     &campaign.ID,
			RecipientEmail: email,
			Subject:        campaign.Subject,
			BodyHTML:       campaign.BodyHTML,
		})
		if err != nil {
			logger.Warn("enqueue campaign email", zap.Error(err),
				zap.Int64("campaign_id", campaign.ID), zap.String("recipient", email))
			continue
		}
		enqueued++
	}
	if len(emails) > 0 && enqueued == 0 {
		rollbackDraft(ctx, store, scope, campaign.ID, logger)
		return 0, errors.New("no recipients could be enqueued")
	}
	if err := store.MarkSent(ctx, scope, campaign.ID); err != nil {
		rollbackDraft(ctx, store, scope, campaign.ID, logger)
		return enqueued, fmt.Errorf("mark sent: %w", err)
	}
	campaign.Status = models.CampaignStatusSent
	if events != nil {
		events.Publish(campaign.TenantID, "campaign.sent", gin.H{
			"campaign":   campaign,
			"recipients": enqueued,
		})
	}
	return enqueued, nil
}

func rollbackDraft(ctx context.Context, store sendStore, scope tenancy.Scope, id int64, logger *zap.Logger) {
	if err := store.ResetDraft(ctx, scope, id); err != nil {
		logger.Error("reset campaign to draft", zap.Error(err), zap.Int64("campaign_id", id))
	}
}

// Delete handles DELETE /campaigns/:id.
func (h *Handler) Delete(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	campaign, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Delete(middleware.PrincipalFrom(c), campaign); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.Delete(c.Request.Context(), scope, campaign.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "campaign not found")
			return
		}
		response.Internal(c, "failed to delete campaign")
		return
	}
	response.NoContent(c)
}

// load fetches the campaign under the scope, writing the error response and
// returning ok=false when it cannot.
func (h *Handler) load(c *gin.Context, scope tenancy.Scope) (*models.Campaign, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid campaign id")
		return nil, false
	}
	campaign, err := h.repo.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		response.Internal(c, "failed to load campaign")
		return nil, false
	}
	if campaign == nil {
		response.NotFound(c, "campaign not found")
		return nil, false
	}
	return campaign, true
}
