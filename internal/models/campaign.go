package models

import "time"

// Campaign status values.
const (
	CampaignStatusDraft   = "draft"
	CampaignStatusSending = "sending"
	CampaignStatusSent    = "sent"
)

// Campaign is an email campaign sent to the tenant's contacts.
type Campaign struct {
	ID int64 `json:"id"`
	Tenancy
	Ownership
	Name      string     `json:"name"`
	Subject   string     `json:"subject"`
	BodyHTML  string     `json:"body_html"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
