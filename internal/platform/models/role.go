package models

type GlobalRole struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Hierarchy   *int   `json:"hierarchy"`
	Visible     bool   `json:"visible"`
	Enabled     bool   `json:"enabled"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type RoleAssignment struct {
	UserID    string `json:"user_id"`
	RoleID    string `json:"role_id"`
	Enabled   bool   `json:"enabled"`
	Visible   bool   `json:"visible"`
	CreatedAt int64  `json:"created_at"`

	Role *GlobalRole `json:"role,omitempty"`
}
