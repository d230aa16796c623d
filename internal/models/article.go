package models

import "time"

// Article status values.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
)

// Article is a help-center article. Articles belong to the tenant (and
// optionally a team) but have no individual owner.
type Article struct {
	ID int64 `json:"id"`
	Tenancy
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
