package models

import "encoding/json"

type Company struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Key            string          `json:"key"`
	PrimaryColor   string          `json:"primary_color"`
	SecondaryColor string          `json:"secondary_color"`
	AccentColor    string          `json:"accent_color"`
	LogoURL        *string         `json:"logo_url,omitempty"`
	Settings       json.RawMessage `json:"settings"`
	Visible        bool            `json:"visible"`
	Enabled        bool            `json:"enabled"`
	CreatedAt      int64           `json:"created_at"`
	UpdatedAt      int64           `json:"updated_at"`
}

// CompanyRole is a company-scoped role. Ordering lives in the authz engine.
type CompanyRole string

const (
	RoleOwner   CompanyRole = "owner"
	RoleAdmin   CompanyRole = "admin"
	RoleManager CompanyRole = "manager"
	RoleUser    CompanyRole = "user"
	RoleViewer  CompanyRole = "viewer"
)

type Membership struct {
	ID        string      `json:"id"`
	ProfileID string      `json:"profile_id"`
	CompanyID string      `json:"company_id"`
	Role      CompanyRole `json:"role"`
	IsActive  bool        `json:"is_active"`
	Visible   bool        `json:"visible"`
	Enabled   bool        `json:"enabled"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt int64       `json:"updated_at"`

	Company *Company `json:"company,omitempty"`
}
