package models

// Principal is the authenticated caller as reported by the identity provider.
// IsSystemAdministrator is filled from the profile, never from the token.
type Principal struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	IsSystemAdministrator bool   `json:"is_system_administrator"`
}

type Profile struct {
	ID                    string  `json:"id"`
	Email                 string  `json:"email"`
	FullName              string  `json:"full_name"`
	IsActive              bool    `json:"is_active"`
	IsSystemAdministrator bool    `json:"is_system_administrator"`
	Creator               *string `json:"creator,omitempty"`
	CreatedAt             int64   `json:"created_at"`
	UpdatedAt             int64   `json:"updated_at"`
}

// Identity is an account held by the identity provider.
type Identity struct {
	ID             string                 `json:"id"`
	Email          string                 `json:"email"`
	EmailConfirmed bool                   `json:"email_confirmed"`
	Metadata       map[string]interface{} `json:"user_metadata,omitempty"`
	LastSignInAt   *int64                 `json:"last_sign_in_at,omitempty"`
	CreatedAt      int64                  `json:"created_at"`
}

// AuthUser is the stored form of an Identity kept by the local provider.
type AuthUser struct {
	Identity
	PasswordHash string `json:"-"`
	UpdatedAt    int64  `json:"updated_at"`
}

type Session struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   int64      `json:"expires_at"`
	Principal   *Principal `json:"user"`
}
