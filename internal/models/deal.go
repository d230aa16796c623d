package models

import "time"

// DealStage is the pipeline stage of a deal.
type DealStage string

const (
	DealStageLead      DealStage = "lead"
	DealStageQualified DealStage = "qualified"
	DealStageProposal  DealStage = "proposal"
	DealStageWon       DealStage = "won"
	DealStageLost      DealStage = "lost"
)

// ValidDealStage reports whether s names a known pipeline stage.
func ValidDealStage(s string) bool {
	switch DealStage(s) {
	case DealStageLead, DealStageQualified, DealStageProposal, DealStageWon, DealStageLost:
		return true
	}
	return false
}

// Deal is a sales opportunity.
type Deal struct {
	ID int64 `json:"id"`
	Tenancy
	Ownership
	Title       string    `json:"title"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Stage       DealStage `json:"stage"`
	ContactID   *int64    `json:"contact_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
