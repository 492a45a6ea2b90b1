package models

import (
	"time"
)

// Organization is a tenant-level record managed from the console.
// Rows are owned by the backend; the console only holds transient copies.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	Website   *string   `json:"website"`
	Address   *string   `json:"address"`
	LogoURL   *string   `json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the organization id.
func (o Organization) Key() string {
	return o.ID
}

// OrganizationInput is the writable subset of an organization, used for both
// inserts and updates.
type OrganizationInput struct {
	Name     string  `json:"name"`
	Website  *string `json:"website"`
	Address  *string `json:"address"`
	IsActive bool    `json:"is_active"`
}
