package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "adminhub/internal/api/context"
	"adminhub/internal/api/handlers"
	"adminhub/internal/api/middleware"
	"adminhub/internal/pkg/errors"
)

type Dependencies struct {
	AuthHandler      *handlers.AuthHandler
	MeHandler        *handlers.MeHandler
	AdminUserHandler *handlers.AdminUserHandler
	CompanyHandler   *handlers.CompanyHandler
	RoleHandler      *handlers.RoleHandler
	AuditHandler     *handlers.AuditHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
	RateLimiter      *middleware.RateLimiter
}

type middlewareFunc = func(http.HandlerFunc) http.HandlerFunc

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	authMid := deps.AuthMiddleware.Handle
	tenantMid := deps.TenantMiddleware.Handle
	limit := deps.RateLimiter.Handle

	// authed runs the standard stack for authenticated routes.
	authed := func(route string, handler http.HandlerFunc, extra ...middlewareFunc) httprouter.Handle {
		mws := append([]middlewareFunc{middleware.Observe(route), authMid, limit}, extra...)
		return chain(handler, mws...)
	}

	// Operational endpoints
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Authentication routes
	router.POST("/auth/login", chain(deps.AuthHandler.Login, middleware.Observe("/auth/login"), limit))
	router.POST("/auth/logout", authed("/auth/logout", deps.AuthHandler.Logout))

	// Current user
	router.GET("/me", authed("/me", deps.MeHandler.Get, tenantMid))
	router.GET("/me/companies", authed("/me/companies", deps.MeHandler.Companies))
	router.PUT("/me/active-company", authed("/me/active-company", deps.MeHandler.SelectCompany))
	router.GET("/me/permissions", authed("/me/permissions", deps.MeHandler.Permissions, tenantMid))

	// Catalog reads
	router.GET("/roles", authed("/roles", deps.RoleHandler.List))
	router.GET("/companies", authed("/companies", deps.CompanyHandler.List))

	// User administration
	router.POST("/admin/users", authed("/admin/users", deps.AdminUserHandler.Create))
	router.PATCH("/admin/users/:user_id", authed("/admin/users/:user_id", deps.AdminUserHandler.Update))
	router.DELETE("/admin/users/:user_id", authed("/admin/users/:user_id", deps.AdminUserHandler.Delete))
	router.PATCH("/admin/users/:user_id/password", authed("/admin/users/:user_id/password", deps.AdminUserHandler.ChangePassword))
	router.GET("/admin/users/:user_id/companies", authed("/admin/users/:user_id/companies", deps.AdminUserHandler.ListCompanies))
	router.POST("/admin/users/:user_id/companies", authed("/admin/users/:user_id/companies", deps.AdminUserHandler.AddCompany))
	router.GET("/admin/users/:user_id/roles", authed("/admin/users/:user_id/roles", deps.AdminUserHandler.ListRoles))
	router.POST("/admin/users/:user_id/roles", authed("/admin/users/:user_id/roles", deps.AdminUserHandler.AssignRole))
	router.PATCH("/admin/users/:user_id/roles/:role_id", authed("/admin/users/:user_id/roles/:role_id", deps.AdminUserHandler.UpdateRole))

	// Memberships
	router.PATCH("/admin/memberships/:membership_id", authed("/admin/memberships/:membership_id", deps.CompanyHandler.UpdateMembership))
	router.DELETE("/admin/memberships/:membership_id", authed("/admin/memberships/:membership_id", deps.CompanyHandler.RemoveMembership))

	// Company administration
	router.GET("/admin/companies", authed("/admin/companies", deps.CompanyHandler.AdminList))
	router.POST("/admin/companies", authed("/admin/companies", deps.CompanyHandler.Create))
	router.PATCH("/admin/companies/:company_id", authed("/admin/companies/:company_id", deps.CompanyHandler.Update))
	router.DELETE("/admin/companies/:company_id", authed("/admin/companies/:company_id", deps.CompanyHandler.Delete))
	router.PATCH("/admin/companies/:company_id/flags", authed("/admin/companies/:company_id/flags", deps.CompanyHandler.SetFlags))
	router.GET("/admin/companies-slug/:slug", authed("/admin/companies-slug/:slug", deps.CompanyHandler.SlugAvailable))

	// Role administration
	router.POST("/admin/roles", authed("/admin/roles", deps.RoleHandler.Create))
	router.PATCH("/admin/roles/:role_id", authed("/admin/roles/:role_id", deps.RoleHandler.Update))
	router.DELETE("/admin/roles/:role_id", authed("/admin/roles/:role_id", deps.RoleHandler.Delete))
	router.PATCH("/admin/roles/:role_id/flags", authed("/admin/roles/:role_id/flags", deps.RoleHandler.SetFlags))

	// Audit
	router.GET("/admin/audit-logs", authed("/admin/audit-logs", deps.AuditHandler.List))

	return router
}

// chain applies middlewares so the first one listed runs first.
func chain(handler http.HandlerFunc, middlewares ...middlewareFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap converts an http.HandlerFunc to an httprouter.Handle, exposing the
// route params through the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
