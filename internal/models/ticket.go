package models

import "time"

// Ticket status and priority values.
const (
	TicketStatusOpen    = "open"
	TicketStatusPending = "pending"
	TicketStatusClosed  = "closed"

	TicketPriorityLow    = "low"
	TicketPriorityNormal = "normal"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

// Ticket is a support ticket.
type Ticket struct {
	ID int64 `json:"id"`
	Tenancy
	Ownership
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	AssigneeID *int64    `json:"assignee_id,omitempty"`
	ContactID  *int64    `json:"contact_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TicketReply is one message in a ticket's thread.
type TicketReply struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketAttachment records an S3 object attached to a ticket.
type TicketAttachment struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	TenantID  int64     `json:"tenant_id"`
	FileName  string    `json:"file_name"`
	S3Key     string    `json:"s3_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
