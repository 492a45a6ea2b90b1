package models

import "time"

// Department belongs to exactly one organization.
type Department struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key returns the department id.
func (d Department) Key() string {
	return d.ID
}

// DepartmentInput is the writable subset of a department.
// OrganizationID is only honoured on insert.
type DepartmentInput struct {
	OrganizationID string  `json:"organization_id,omitempty"`
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	IsActive       bool    `json:"is_active"`
}
