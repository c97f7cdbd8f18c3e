package handlers

import (
	"net/http"

	"adminhub/internal/engine/catalog"
	"adminhub/internal/engine/users"
	"adminhub/internal/pkg/errors"
)

// AdminUserHandler serves the privileged user lifecycle and the per-user
// membership and role assignment endpoints.
type AdminUserHandler struct {
	manager *users.Manager
	catalog *catalog.Service
}

func NewAdminUserHandler(manager *users.Manager, catalog *catalog.Service) *AdminUserHandler {
	return &AdminUserHandler{manager: manager, catalog: catalog}
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	IsSysAdmin  bool   `json:"isSysAdmin"`
	CompanyID   string `json:"companyId"`
	CompanyRole string `json:"companyRole"`
	RoleID      string `json:"roleId"`
}

func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.manager.Create(r.Context(), principalFrom(r), users.CreateRequest{
		Email:        req.Email,
		FullName:     req.FullName,
		IsSysAdmin:   req.IsSysAdmin,
		CompanyID:    req.CompanyID,
		CompanyRole:  req.CompanyRole,
		GlobalRoleID: req.RoleID,
	})
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type UpdateUserRequest struct {
	IsActive *bool   `json:"is_active"`
	FullName *string `json:"fullName"`
}

func (h *AdminUserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "is_active is required", nil)
		return
	}

	profile, err := h.manager.UpdateFields(r.Context(), principalFrom(r), param(r, "user_id"), users.UpdateRequest{
		IsActive: *req.IsActive,
		FullName: req.FullName,
	})
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": profile.IsActive})
}

func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), principalFrom(r), param(r, "user_id")); err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type ChangePasswordRequest struct {
	Password string `json:"password"`
}

func (h *AdminUserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.manager.ChangePassword(r.Context(), principalFrom(r), param(r, "user_id"), req.Password); err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *AdminUserHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.catalog.ListMemberships(r.Context(), principalFrom(r), param(r, "user_id"))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

func (h *AdminUserHandler) AddCompany(w http.ResponseWriter, r *http.Request) {
	var req catalog.MemberInput
	if !decodeBody(w, r, &req) {
		return
	}
	membership, err := h.catalog.AddMember(r.Context(), principalFrom(r), param(r, "user_id"), req)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, membership)
}

func (h *AdminUserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.catalog.ListAssignments(r.Context(), principalFrom(r), param(r, "user_id"))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

type AssignRoleRequest struct {
	RoleID string `json:"roleId"`
}

func (h *AdminUserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	assignment, err := h.catalog.AssignRole(r.Context(), principalFrom(r), param(r, "user_id"), req.RoleID)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *AdminUserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var flags catalog.Flags
	if !decodeBody(w, r, &flags) {
		return
	}
	assignment, err := h.catalog.SetAssignmentFlags(r.Context(), principalFrom(r), param(r, "user_id"), param(r, "role_id"), flags)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}
