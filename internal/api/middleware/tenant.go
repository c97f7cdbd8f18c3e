package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	apiContext "adminhub/internal/api/context"
	"adminhub/internal/engine/session"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

// TenantMiddleware resolves the active company for the authenticated caller
// and stores the session context for handlers.
type TenantMiddleware struct {
	resolver *session.Resolver
}

func NewTenantMiddleware(resolver *session.Resolver) *TenantMiddleware {
	return &TenantMiddleware{resolver: resolver}
}

func (m *TenantMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := r.Context().Value(apiContext.Principal).(*models.Principal)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authenticated principal found", nil)
			return
		}

		sc, err := m.resolver.Load(r, principal)
		if err != nil {
			log.Error().Err(err).Str("host", r.Host).Msg("failed to resolve tenant")
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to resolve company", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Session, sc)
		next(w, r.WithContext(ctx))
	}
}
