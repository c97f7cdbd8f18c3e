package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/auth"
	"adminhub/internal/platform/models"
	"adminhub/internal/platform/repositories"
)

// LocalProvider keeps identities in the application store.
type LocalProvider struct {
	users    *repositories.AuthUserRepository
	sessions *repositories.SessionRepository
	tokens   *auth.TokenService
	cost     int
}

func NewLocalProvider(users *repositories.AuthUserRepository, sessions *repositories.SessionRepository, tokens *auth.TokenService) *LocalProvider {
	return &LocalProvider{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
	}
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := p.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: load identity: %v", errors.ErrDependency, err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := p.tokens.GenerateAccessToken(user.ID, user.Email, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", errors.ErrDependency, err)
	}
	if err := p.sessions.Create(ctx, sessionID, user.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("%w: store session: %v", errors.ErrDependency, err)
	}
	if err := p.users.UpdateLastSignIn(ctx, user.ID, time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("%w: record sign-in: %v", errors.ErrDependency, err)
	}

	return &models.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		Principal:   &models.Principal{ID: user.ID, Email: user.Email},
	}, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.tokens.ValidateToken(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	if err := p.sessions.Revoke(ctx, claims.ID); err != nil {
		return fmt.Errorf("%w: revoke session: %v", errors.ErrDependency, err)
	}
	return nil
}

func (p *LocalProvider) CurrentPrincipal(ctx context.Context, accessToken string) (*models.Principal, error) {
	claims, err := p.tokens.ValidateToken(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	active, err := p.sessions.IsActive(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", errors.ErrDependency, err)
	}
	if !active {
		return nil, ErrInvalidToken
	}

	return &models.Principal{ID: claims.UserID, Email: claims.Email}, nil
}

func (p *LocalProvider) AdminCreate(ctx context.Context, params CreateParams) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), p.cost)
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %v", errors.ErrDependency, err)
	}

	user := &models.AuthUser{
		Identity: models.Identity{
			Email:          strings.TrimSpace(params.Email),
			EmailConfirmed: params.EmailConfirmed,
			Metadata:       params.Metadata,
		},
		PasswordHash: string(hash),
	}
	if err := p.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, errors.ErrConflict) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("%w: create identity: %v", errors.ErrDependency, err)
	}
	return user.ID, nil
}

func (p *LocalProvider) AdminDelete(ctx context.Context, id string) error {
	found, err := p.users.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: delete identity: %v", errors.ErrDependency, err)
	}
	if !found {
		return fmt.Errorf("%w: identity %s", errors.ErrNotFound, id)
	}
	return nil
}

func (p *LocalProvider) AdminUpdatePassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", errors.ErrDependency, err)
	}
	found, err := p.users.UpdatePassword(ctx, id, string(hash))
	if err != nil {
		return fmt.Errorf("%w: update password: %v", errors.ErrDependency, err)
	}
	if !found {
		return fmt.Errorf("%w: identity %s", errors.ErrNotFound, id)
	}
	return nil
}

func (p *LocalProvider) AdminList(ctx context.Context) ([]*models.Identity, error) {
	users, err := p.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list identities: %v", errors.ErrDependency, err)
	}

	identities := make([]*models.Identity, 0, len(users))
	for _, u := range users {
		id := u.Identity
		identities = append(identities, &id)
	}
	return identities, nil
}
