// Package identity adapts the external identity provider: sign-in, token
// resolution and the privileged account operations used by administrators.
package identity

import (
	"context"
	"fmt"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

var (
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", errors.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid login credentials", errors.ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", errors.ErrUnauthenticated)
)

type CreateParams struct {
	Email          string
	Password       string
	EmailConfirmed bool
	Metadata       map[string]interface{}
}

// Provider is implemented by LocalProvider and GoTrueClient. Principals it
// returns never carry IsSystemAdministrator; that flag comes from the profile.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentPrincipal(ctx context.Context, accessToken string) (*models.Principal, error)

	AdminCreate(ctx context.Context, params CreateParams) (string, error)
	AdminDelete(ctx context.Context, id string) error
	AdminUpdatePassword(ctx context.Context, id, password string) error
	AdminList(ctx context.Context) ([]*models.Identity, error)
}
