package entity

import "time"

// Project is a board container owned by exactly one organization.
type Project struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Key            string    `db:"key" json:"key"`
	Description    *string   `db:"description" json:"description,omitempty"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
