package models

import "time"

// Email log status values.
const (
	EmailStatusQueued = "queued"
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog records one outbound email (campaign blast or ticket notification).
type EmailLog struct {
	ID             int64      `json:"id"`
	TenantID       int64      `json:"tenant_id"`
	CampaignID     *int64     `json:"campaign_id,omitempty"`
	TicketID       *int64     `json:"ticket_id,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
