package identity

import (
	"database/sql"
	"fmt"

	"adminhub/internal/platform/auth"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/repositories"
)

const (
	ProviderLocal  = "local"
	ProviderGoTrue = "gotrue"
)

// FromConfig builds the provider named by cfg.Identity.Provider. The local
// provider stores identities in db; the GoTrue client mirrors them there.
func FromConfig(cfg *config.Config, db *sql.DB) (Provider, error) {
	switch cfg.Identity.Provider {
	case "", ProviderLocal:
		tokens := auth.NewTokenService(cfg.JWT)
		return NewLocalProvider(repositories.NewAuthUserRepository(db), repositories.NewSessionRepository(db), tokens), nil
	case ProviderGoTrue:
		if cfg.Identity.URL == "" || cfg.Identity.ServiceKey == "" {
			return nil, fmt.Errorf("identity provider %q requires url and service_key", ProviderGoTrue)
		}
		return NewGoTrueClient(cfg.Identity, repositories.NewAuthUserRepository(db)), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Identity.Provider)
	}
}
