package models

import "time"

// Org is a tenant row in the companies table. The token is immutable
// once the row exists.
type Org struct {
	ID        int64      `json:"id"`
	Token     string     `json:"company_token"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
