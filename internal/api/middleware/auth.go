package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apiContext "adminhub/internal/api/context"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/models"
)

type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context, accessToken string) (*models.Principal, error)
}

type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// AuthMiddleware resolves the bearer token into a Principal and enriches it
// with the system administrator flag from the caller's profile.
type AuthMiddleware struct {
	identities PrincipalResolver
	profiles   ProfileLookup
}

func NewAuthMiddleware(identities PrincipalResolver, profiles ProfileLookup) *AuthMiddleware {
	return &AuthMiddleware{identities: identities, profiles: profiles}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		principal, err := m.identities.CurrentPrincipal(r.Context(), token)
		if err != nil {
			if stderrors.Is(err, errors.ErrUnauthenticated) || stderrors.Is(err, errors.ErrNotFound) {
				errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
				return
			}
			log.Error().Err(err).Msg("failed to resolve principal")
			errors.WriteAppError(w, err)
			return
		}

		profile, err := m.profiles.GetByID(r.Context(), principal.ID)
		if err != nil {
			log.Error().Err(err).Str("user_id", principal.ID).Msg("failed to load profile")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load profile", nil)
			return
		}
		if profile != nil {
			if !profile.IsActive {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Account is disabled", nil)
				return
			}
			principal.IsSystemAdministrator = profile.IsSystemAdministrator
		}

		notePrincipal(r.Context(), principal)
		ctx := context.WithValue(r.Context(), apiContext.Principal, principal)
		ctx = context.WithValue(ctx, apiContext.Token, token)
		ctx = audit.WithActor(ctx, principal.ID)
		next(w, r.WithContext(ctx))
	}
}
