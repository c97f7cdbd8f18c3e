package api

import (
	"database/sql"

	"adminhub/internal/api/handlers"
	"adminhub/internal/api/middleware"
	"adminhub/internal/engine/authz"
	"adminhub/internal/engine/catalog"
	"adminhub/internal/engine/session"
	"adminhub/internal/engine/users"
	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/identity"
	"adminhub/internal/platform/repositories"
)

// NewDependencies assembles repositories, engines, handlers and middleware
// over db and the given identity provider.
func NewDependencies(cfg *config.Config, db *sql.DB, provider identity.Provider) *Dependencies {
	auditLog := audit.NewLogger(db)

	profileRepo := repositories.NewProfileRepository(db, auditLog)
	companyRepo := repositories.NewCompanyRepository(db, auditLog)
	membershipRepo := repositories.NewMembershipRepository(db, auditLog)
	roleRepo := repositories.NewRoleRepository(db, auditLog)
	assignmentRepo := repositories.NewAssignmentRepository(db, auditLog)

	gate := authz.NewGate(profileRepo, assignmentRepo)
	evaluator := authz.NewEvaluator(membershipRepo)

	catalogSvc := catalog.NewService(gate, companyRepo, roleRepo, membershipRepo, assignmentRepo, profileRepo)
	manager := users.NewManager(users.Config{
		DefaultPassword:   cfg.Users.DefaultPassword,
		MinPasswordLength: cfg.Users.MinPasswordLength,
		Protected: users.ProtectedAccount{
			ID:    cfg.Users.ProtectedAccountID,
			Email: cfg.Users.ProtectedAccountEmail,
		},
	}, gate, provider, profileRepo, membershipRepo, assignmentRepo)

	slugs := session.NewCompanyCache(catalogSvc, cfg.Tenant.SlugCacheTTL)
	resolver := session.NewResolver(slugs, cfg.Tenant.CookieName, cfg.Tenant.ActiveCompanyCookie)

	return &Dependencies{
		AuthHandler:      handlers.NewAuthHandler(provider),
		MeHandler:        handlers.NewMeHandler(profileRepo, catalogSvc, evaluator, resolver),
		AdminUserHandler: handlers.NewAdminUserHandler(manager, catalogSvc),
		CompanyHandler:   handlers.NewCompanyHandler(catalogSvc),
		RoleHandler:      handlers.NewRoleHandler(catalogSvc),
		AuditHandler:     handlers.NewAuditHandler(gate, auditLog),
		HealthHandler:    handlers.NewHealthHandler(db),
		MetricsHandler:   handlers.NewMetricsHandler(),
		AuthMiddleware:   middleware.NewAuthMiddleware(provider, profileRepo),
		TenantMiddleware: middleware.NewTenantMiddleware(resolver),
		RateLimiter:      middleware.NewRateLimiter(cfg.RateLimit),
	}
}
