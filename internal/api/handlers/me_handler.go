package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"adminhub/internal/engine/authz"
	"adminhub/internal/engine/catalog"
	"adminhub/internal/engine/session"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// MeHandler serves the caller's own profile, companies and active company.
type MeHandler struct {
	profiles  ProfileLookup
	catalog   *catalog.Service
	evaluator *authz.Evaluator
	sessions  *session.Resolver
}

func NewMeHandler(profiles ProfileLookup, catalog *catalog.Service, evaluator *authz.Evaluator, sessions *session.Resolver) *MeHandler {
	return &MeHandler{profiles: profiles, catalog: catalog, evaluator: evaluator, sessions: sessions}
}

type MeResponse struct {
	Profile       *models.Profile          `json:"profile"`
	Roles         []*models.RoleAssignment `json:"roles"`
	ActiveCompany *models.Company          `json:"active_company"`
	ActiveRole    *models.CompanyRole      `json:"active_role"`
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)
	if principal == nil {
		errors.WriteAppError(w, errors.ErrUnauthenticated)
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), principal.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load profile", nil)
		return
	}
	if profile == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Profile not found", nil)
		return
	}

	roles, err := h.catalog.RolesFor(r.Context(), principal)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}

	resp := MeResponse{Profile: profile, Roles: roles}
	company, role, err := h.activeCompany(r.Context(), principal, sessionFrom(r).ActiveCompanyID)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	if company != nil {
		resp.ActiveCompany = company
		resp.ActiveRole = &role
	}
	writeJSON(w, http.StatusOK, resp)
}

// activeCompany returns the company only when the principal holds an active
// membership in it.
func (h *MeHandler) activeCompany(ctx context.Context, principal *models.Principal, companyID string) (*models.Company, models.CompanyRole, error) {
	if companyID == "" {
		return nil, "", nil
	}
	role, ok, err := h.evaluator.RoleIn(ctx, principal.ID, companyID)
	if err != nil || !ok {
		return nil, "", err
	}
	company, err := h.catalog.GetCompany(ctx, principal, companyID)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return company, role, nil
}

func (h *MeHandler) Companies(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.catalog.CompaniesFor(r.Context(), principalFrom(r))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

type SelectCompanyRequest struct {
	CompanyID string `json:"companyId"`
}

// SelectCompany saves the caller's explicit company choice. An empty id
// clears it.
func (h *MeHandler) SelectCompany(w http.ResponseWriter, r *http.Request) {
	var req SelectCompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	principal := principalFrom(r)
	if principal == nil {
		errors.WriteAppError(w, errors.ErrUnauthenticated)
		return
	}

	if req.CompanyID == "" {
		h.sessions.Save(w, "")
		writeJSON(w, http.StatusOK, map[string]interface{}{"active_company_id": nil})
		return
	}

	company, role, err := h.activeCompany(r.Context(), principal, req.CompanyID)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	if company == nil {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "You are not an active member of this company", nil)
		return
	}

	h.sessions.Save(w, company.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_company_id": company.ID,
		"role":              role,
	})
}

type PermissionsResponse struct {
	CompanyID   string                            `json:"company_id"`
	Role        *models.CompanyRole               `json:"role"`
	Permissions map[authz.Resource][]authz.Action `json:"permissions"`
}

func (h *MeHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)
	if principal == nil {
		errors.WriteAppError(w, errors.ErrUnauthenticated)
		return
	}

	sc := sessionFrom(r)
	resp := PermissionsResponse{
		CompanyID:   sc.ActiveCompanyID,
		Permissions: map[authz.Resource][]authz.Action{},
	}

	role, ok, err := h.evaluator.RoleIn(r.Context(), principal.ID, sc.ActiveCompanyID)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	if ok {
		resp.Role = &role
		resp.Permissions = authz.PermissionsFor(role)
	}
	writeJSON(w, http.StatusOK, resp)
}
