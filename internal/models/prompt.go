package models

import "time"

// Prompt is a shared prompt row in PostgreSQL. CreatorID references the
// Mongo user document id; the auth core only reads it for ownership checks.
type Prompt struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creator_id"`
	Prompt    string    `json:"prompt"`
	Tag       string    `json:"tag"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`

	// Creator is optional decoration filled in by handlers for list views.
	Creator *Profile `json:"creator,omitempty"`
}

// PromptRequest is the JSON body for prompt create and update.
type PromptRequest struct {
	Prompt   string `json:"prompt"`
	Tag      string `json:"tag"`
	IsPublic *bool  `json:"is_public,omitempty"`
}

// DashboardStats is the response for GET /api/auth/dashboard/stats.
type DashboardStats struct {
	TotalPrompts  int64 `json:"totalPrompts"`
	SharedPrompts int64 `json:"sharedPrompts"`
	SavedPrompts  int64 `json:"savedPrompts"`
}
