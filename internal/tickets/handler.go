package tickets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/middleware"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/policy"
	"github.com/nimbus-crm/backend/internal/tenancy"
	"github.com/nimbus-crm/backend/pkg/queue"
	"github.com/nimbus-crm/backend/pkg/response"
	"github.com/nimbus-crm/backend/pkg/storage"
)

// Publisher broadcasts tenant-scoped activity events.
type Publisher interface {
	Publish(tenantID int64, event string, data interface{})
}

// Handler handles ticket HTTP endpoints.
type Handler struct {
	repo     *Repository
	policy   policy.TicketPolicy
	assigner tenancy.TeamAssigner
	store    *storage.S3
	queue    *queue.Queue
	events   Publisher
	logger   *zap.Logger
}

// NewHandler creates a tickets handler. store, q, and events may be nil; the
// corresponding features respond 503 or no-op when they are.
func NewHandler(repo *Repository, pol policy.TicketPolicy, assigner tenancy.TeamAssigner,
	store *storage.S3, q *queue.Queue, events Publisher, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, policy: pol, assigner: assigner, store: store, queue: q, events: events, logger: logger}
}

// TicketRequest is the body for POST/PUT ticket endpoints.
type TicketRequest struct {
	Subject   string `json:"subject" binding:"required"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	ContactID *int64 `json:"contact_id"`
}

// AssignRequest is the body for POST /tickets/:id/assign.
type AssignRequest struct {
	AssigneeID int64 `json:"assignee_id" binding:"required"`
}

// ReplyRequest is the body for POST /tickets/:id/replies.
type ReplyRequest struct {
	Body string `json:"body" binding:"required"`
}

// AttachmentRequest is the body for POST /tickets/:id/attachments.
type AttachmentRequest struct {
	FileName  string `json:"file_name" binding:"required"`
	SizeBytes int64  `json:"size_bytes"`
}

func validTicketStatus(s string) bool {
	return s == models.TicketStatusOpen || s == models.TicketStatusPending || s == models.TicketStatusClosed
}

func validTicketPriority(s string) bool {
	switch s {
	case models.TicketPriorityLow, models.TicketPriorityNormal, models.TicketPriorityHigh, models.TicketPriorityUrgent:
		return true
	}
	return false
}

// List handles GET /tickets. Accepts an optional ?status= filter.
func (h *Handler) List(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	status := c.Query("status")
	if status != "" && !validTicketStatus(status) {
		response.BadRequest(c, "unknown status: "+status)
		return
	}
	list, err := h.repo.List(c.Request.Context(), scope, status)
	if err != nil {
		response.Internal(c, "failed to load tickets")
		return
	}
	response.OK(c, list)
}

// Create handles POST /tickets.
func (h *Handler) Create(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TicketPriorityNormal
	}
	if !validTicketPriority(priority) {
		response.BadRequest(c, "unknown priority: "+priority)
		return
	}

	ticket := &models.Ticket{
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		Status:    models.TicketStatusOpen,
		Priority:  priority,
		ContactID: req.ContactID,
	}
	if err := scope.StampNew(c.Request.Context(), h.assigner, ticket); err != nil {
		h.logger.Error("stamp ticket", zap.Error(err))
		response.Internal(c, "failed to create ticket")
		return
	}
	if err := h.repo.Create(c.Request.Context(), ticket); err != nil {
		response.Internal(c, "failed to create ticket")
		return
	}
	h.publish(ticket.TenantID, "ticket.created", ticket)
	response.Created(c, ticket)
}

// GetByID handles GET /tickets/:id. A cross-tenant id reads as not found.
func (h *Handler) GetByID(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	response.OK(c, ticket)
}

// Update handles PUT /tickets/:id.
func (h *Handler) Update(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Update(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Status != "" {
		if !validTicketStatus(req.Status) {
			response.BadRequest(c, "unknown status: "+req.Status)
			return
		}
		ticket.Status = req.Status
	}
	if req.Priority != "" {
		if !validTicketPriority(req.Priority) {
			response.BadRequest(c, "unknown priority: "+req.Priority)
			return
		}
		ticket.Priority = req.Priority
	}
	ticket.Subject = strings.TrimSpace(req.Subject)
	ticket.Body = req.Body
	ticket.ContactID = req.ContactID
	if err := h.repo.Update(c.Request.Context(), scope, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "ticket not found")
			return
		}
		response.Internal(c, "failed to update ticket")
		return
	}
	response.OK(c, ticket)
}

// Assign handles POST /tickets/:id/assign. The assignee must be an active
// user of the ticket's tenant; the ticket follows the assignee's team.
func (h *Handler) Assign(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Assign(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	assignee, err := h.repo.TenantUser(c.Request.Context(), ticket.TenantID, req.AssigneeID)
	if err != nil {
		response.Internal(c, "failed to look up assignee")
		return
	}
	if assignee == nil {
		response.BadRequest(c, "assignee is not a member of this tenant")
		return
	}
	if err := h.repo.Assign(c.Request.Context(), scope, ticket.ID, assignee.ID, assignee.TeamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "ticket not found")
			return
		}
		response.Internal(c, "failed to assign ticket")
		return
	}
	ticket.AssigneeID = &assignee.ID
	if assignee.TeamID != nil {
		ticket.TeamID = assignee.TeamID
	}
	h.publish(ticket.TenantID, "ticket.assigned", gin.H{
		"ticket_id":   ticket.ID,
		"subject":     ticket.Subject,
		"assignee_id": assignee.ID,
	})
	response.OK(c, ticket)
}

// Close handles POST /tickets/:id/close.
func (h *Handler) Close(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Close(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.SetStatus(c.Request.Context(), scope, ticket.ID, models.TicketStatusClosed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "ticket not found")
			return
		}
		response.Internal(c, "failed to close ticket")
		return
	}
	ticket.Status = models.TicketStatusClosed
	h.publish(ticket.TenantID, "ticket.closed", gin.H{"ticket_id": ticket.ID, "subject": ticket.Subject})
	response.OK(c, ticket)
}

// ListReplies handles GET /tickets/:id/replies.
func (h *Handler) ListReplies(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	replies, err := h.repo.ListReplies(c.Request.Context(), ticket.ID)
	if err != nil {
		response.Internal(c, "failed to load replies")
		return
	}
	response.OK(c, replies)
}

// Reply handles POST /tickets/:id/replies. A reply notifies the ticket's
// contact by email when one is linked.
func (h *Handler) Reply(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	principal := middleware.PrincipalFrom(c)
	if d := h.policy.Reply(principal, ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reply := &models.TicketReply{
		TicketID: ticket.ID,
		AuthorID: principal.ID,
		Body:     req.Body,
	}
	if err := h.repo.CreateReply(c.Request.Context(), reply); err != nil {
		response.Internal(c, "failed to create reply")
		return
	}
	h.notifyContact(c, ticket, reply)
	h.publish(ticket.TenantID, "ticket.replied", gin.H{"ticket_id": ticket.ID, "reply_id": reply.ID})
	response.Created(c, reply)
}

// Delete handles DELETE /tickets/:id.
func (h *Handler) Delete(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Delete(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if err := h.repo.Delete(c.Request.Context(), scope, ticket.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "ticket not found")
			return
		}
		response.Internal(c, "failed to delete ticket")
		return
	}
	response.NoContent(c)
}

// CreateAttachment handles POST /tickets/:id/attachments. It records the
// attachment and returns a pre-signed PUT URL the client uploads to directly.
func (h *Handler) CreateAttachment(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Attach(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if h.store == nil {
		response.Internal(c, "attachment storage is not configured")
		return
	}
	var req AttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidAttachmentName(req.FileName) {
		response.BadRequest(c, "file type not allowed")
		return
	}
	if req.SizeBytes > storage.MaxAttachmentSize {
		response.BadRequest(c, fmt.Sprintf("file exceeds %d bytes", storage.MaxAttachmentSize))
		return
	}

	key := storage.AttachmentKey(ticket.TenantID, ticket.ID, uuid.New().String(), req.FileName)
	uploadURL, err := h.store.PresignUpload(c.Request.Context(), key, storage.ContentTypeForFilename(req.FileName))
	if err != nil {
		h.logger.Error("presign upload", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to create upload URL")
		return
	}
	attachment := &models.TicketAttachment{
		TicketID:  ticket.ID,
		TenantID:  ticket.TenantID,
		FileName:  req.FileName,
		S3Key:     key,
		SizeBytes: req.SizeBytes,
	}
	if err := h.repo.CreateAttachment(c.Request.Context(), attachment); err != nil {
		response.Internal(c, "failed to record attachment")
		return
	}
	response.Created(c, gin.H{"attachment": attachment, "upload_url": uploadURL})
}

// ListAttachments handles GET /tickets/:id/attachments.
func (h *Handler) ListAttachments(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.View(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	list, err := h.repo.ListAttachments(c.Request.Context(), ticket.ID)
	if err != nil {
		response.Internal(c, "failed to load attachments")
		return
	}
	response.OK(c, list)
}

// DownloadAttachment handles GET /tickets/:id/attachments/:attachment_id/download
// and returns a pre-signed GET URL.
func (h *Handler) DownloadAttachment(c *gin.Context) {
	scope := middleware.ScopeFrom(c)
	ticket, ok := h.load(c, scope)
	if !ok {
		return
	}
	if d := h.policy.Attach(middleware.PrincipalFrom(c), ticket); d != nil {
		response.Denied(c, d.Code, d.Reason)
		return
	}
	if h.store == nil {
		response.Internal(c, "attachment storage is not configured")
		return
	}
	attachmentID, err := strconv.ParseInt(c.Param("attachment_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid attachment id")
		return
	}
	attachment, err := h.repo.GetAttachment(c.Request.Context(), ticket.ID, attachmentID)
	if err != nil {
		response.Internal(c, "failed to load attachment")
		return
	}
	if attachment == nil {
		response.NotFound(c, "attachment not found")
		return
	}
	url, err := h.store.PresignDownload(c.Request.Context(), attachment.S3Key)
	if err != nil {
		h.logger.Error("presign download", zap.Error(err), zap.String("key", attachment.S3Key))
		response.Internal(c, "failed to create download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "file_name": attachment.FileName})
}

// notifyContact enqueues the reply notification email. Failures are logged,
// never surfaced: the reply itself already committed.
func (h *Handler) notifyContact(c *gin.Context, ticket *models.Ticket, reply *models.TicketReply) {
	if h.queue == nil || ticket.ContactID == nil {
		return
	}
	email, err := h.repo.ContactEmail(c.Request.Context(), ticket.TenantID, *ticket.ContactID)
	if err != nil || email == "" {
		if err != nil {
			h.logger.Warn("contact lookup for reply notification", zap.Error(err), zap.Int64("ticket_id", ticket.ID))
		}
		return
	}
	err = h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		TenantID:       ticket.TenantID,
		TicketID:       &ticket.ID,
		RecipientEmail: email,
		Subject:        "Re: " + ticket.Subject,
		BodyHTML:       "<p>" + reply.Body + "</p>",
	})
	if err != nil {
		h.logger.Warn("enqueue reply notification", zap.Error(err), zap.Int64("ticket_id", ticket.ID))
	}
}

func (h *Handler) publish(tenantID int64, event string, data interface{}) {
	if h.events != nil {
		h.events.Publish(tenantID, event, data)
	}
}

// load fetches the ticket under the scope, writing the error response and
// returning ok=false when it cannot.
func (h *Handler) load(c *gin.Context, scope tenancy.Scope) (*models.Ticket, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return nil, false
	}
	ticket, err := h.repo.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		response.Internal(c, "failed to load ticket")
		return nil, false
	}
	if ticket == nil {
		response.NotFound(c, "ticket not found")
		return nil, false
	}
	return ticket, true
}
