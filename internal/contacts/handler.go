package contacts

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

// Handler handles contact HTTP endpoints.
type Handler struct {
	repo     *Repository
	policy   policy.ContactPolicy
	assigner tenancy.TeamAssigner
	logger   *zap.Logger
}

// NewHandler creates a contacts handler.
func NewHandler(repo *Repository, pol policy.ContactPolicy, assigner tenancy.TeamAssigner, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, policy: pol, assigner: assigner, logger: logger}
}

// ContactRequest is the body for POST/PUT contact endpoints.
type ContactRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

// List handles GET /contacts.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	list, err := h.repo.List(c.Request.Context(), scope)
	if err != nil {
		response.Internal(c, "failed to load contacts")
		return
	}
	response.OK(c, list)
}

// Create handles POST /contacts.
func (h *Handler) Create(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	contact := &models.Contact{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		Company:   req.Company,
	}
	if err := scope.StampNew(c.Request.Context(), h.assigner, contact); err != nil {
		h.logger.Error("stamp contact", zap.Error(err))
		response.Internal(c, "failed to create contact")
		return
	}
	if err := h.repo.Create(c.Request.Context(), contact); err != nil {
		response.Internal(c, "failed to create contact")
		return
	}
	response.Created(c, contact)
}

// GetByID handles GET /contacts/:id. A cross-tenant id reads as not found.
func (h *Handler) GetByID(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	contact, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), contact); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	response.OK(c, contact)
}

// Update handles PUT /contacts/:id.
func (h *Handler) Update(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	contact, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Update(middleware.PrincipalFrom(c), contact); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	contact.FirstName = strings.TrimSpace(req.FirstName)
	contact.LastName = strings.TrimSpace(req.LastName)
	contact.Email = strings.TrimSpace(req.Email)
	contact.Phone = req.Phone
	contact.Company = req.Company
	if err := h.repo.Update(c.Request.Context(), scope, contact); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "contact not found")
			return
		}
		response.Internal(c, "failed to update contact")
		return
	}
	response.OK(c, contact)
}

// Delete handles DELETE /contacts/:id.
func (h *Handler) Delete(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	contact, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Delete(middleware.PrincipalFrom(c), contact); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.Delete(c.Request.Context(), scope, contact.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "contact not found")
			return
		}
		response.Internal(c, "failed to delete contact")
		return
	}
	response.NoContent(c)
}

// load fetches the contact under the scope, writing the error response and
// returning ok=false when it cannot.
func (h *Handler) load(c *gin.Context, scope tenancy.Scope) (*models.Contact, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid contact id")
		return nil, false
	}
	contact, err := h.repo.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		response.Internal(c, "failed to load contact")
		return nil, false
	}
	if contact == nil {
		response.NotFound(c, "contact not found")
		return nil, false
	}
	return contact, true
}
